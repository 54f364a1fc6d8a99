package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/model"
)

const extractionSystemPrompt = "You are an expert data analyst. Extract a knowledge graph from the user's text and respond ONLY with a valid JSON object."

const extractionPrompt = `From the text below, extract the key entities and the relationships between them.
The graph is used for M&A (mergers and acquisitions) analysis.

Instructions:
1. Entity types: Company, Person, Industry, FinancialValue.
2. Relationship types: ACQUIRED (Company -> Company), IS_CEO_OF (Person -> Company), OPERATES_IN (Company -> Industry), DEAL_VALUE_IS (Company -> FinancialValue).
3. Return one JSON object with the keys "entities" and "relationships".
4. Only include entities and relationships that are explicitly mentioned in the text.

Example output:
{
  "entities": [
    {"name": "Microsoft", "type": "Company"},
    {"name": "Satya Nadella", "type": "Person"},
    {"name": "USD 68.7 billion", "type": "FinancialValue"}
  ],
  "relationships": [
    {"source": "Satya Nadella", "target": "Microsoft", "type": "IS_CEO_OF"},
    {"source": "Microsoft", "target": "USD 68.7 billion", "type": "DEAL_VALUE_IS"}
  ]
}

Text to analyze:
---
%s
---`

// LLMGraphExtractor creates a graph extractor that prompts an LLM in JSON
// mode. An empty model uses the provider default.
func LLMGraphExtractor(provider llm.Provider, modelName string) GraphExtractFunc {
	return func(ctx context.Context, text string) (*ExtractedGraph, error) {
		if provider == nil {
			return nil, fmt.Errorf("no LLM provider configured")
		}
		if strings.TrimSpace(text) == "" {
			return &ExtractedGraph{}, nil
		}

		resp, err := provider.Complete(ctx, llm.CompletionRequest{
			System: extractionSystemPrompt,
			Prompt: fmt.Sprintf(extractionPrompt, text),
			JSON:   true,
			Model:  modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to extract graph: %w", err)
		}

		return ParseExtractedGraph(resp.Text)
	}
}

// ParseExtractedGraph decodes an extraction reply. Code fences and missing
// keys are tolerated. Unknown types are dropped, names are trimmed and
// duplicates removed. A relationship endpoint that is not among the
// entities is added with the type its relationship implies.
func ParseExtractedGraph(text string) (*ExtractedGraph, error) {
	raw, err := model.ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var loose struct {
		Entities []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"entities"`
		Relationships []struct {
			Source string `json:"source"`
			Target string `json:"target"`
			Type   string `json:"type"`
		} `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	graph := &ExtractedGraph{
		Entities:      []ExtractedEntity{},
		Relationships: []ExtractedRelationship{},
	}
	seenEntities := map[string]bool{}
	addEntity := func(name string, entityType model.EntityType) {
		key := model.NormalizeName(name) + "|" + string(entityType)
		if seenEntities[key] {
			return
		}
		seenEntities[key] = true
		graph.Entities = append(graph.Entities, ExtractedEntity{Name: name, Type: entityType})
	}

	for _, e := range loose.Entities {
		name := cleanName(e.Name)
		entityType, ok := model.ParseEntityType(e.Type)
		if name == "" || !ok {
			continue
		}
		addEntity(name, entityType)
	}

	seenRelationships := map[string]bool{}
	for _, r := range loose.Relationships {
		relationType, ok := model.ParseRelationType(r.Type)
		source, target := cleanName(r.Source), cleanName(r.Target)
		if !ok || source == "" || target == "" {
			continue
		}
		if model.NormalizeName(source) == model.NormalizeName(target) {
			continue
		}

		key := model.NormalizeName(source) + "|" + string(relationType) + "|" + model.NormalizeName(target)
		if seenRelationships[key] {
			continue
		}
		seenRelationships[key] = true

		schema := model.RelationSchema[relationType]
		if _, found := graph.EntityFor(source, schema[0]); !found {
			addEntity(source, schema[0])
		}
		if _, found := graph.EntityFor(target, schema[1]); !found {
			addEntity(target, schema[1])
		}

		graph.Relationships = append(graph.Relationships, ExtractedRelationship{
			Source: source,
			Target: target,
			Type:   relationType,
		})
	}

	return graph, nil
}

// EntityFor finds the entity a relationship endpoint refers to. An entity
// of the preferred type wins over one of another type with the same name.
func (g *ExtractedGraph) EntityFor(name string, preferred model.EntityType) (ExtractedEntity, bool) {
	normalized := model.NormalizeName(name)
	var fallback *ExtractedEntity
	for i, e := range g.Entities {
		if model.NormalizeName(e.Name) != normalized {
			continue
		}
		if e.Type == preferred {
			return e, true
		}
		if fallback == nil {
			fallback = &g.Entities[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return ExtractedEntity{}, false
}

func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

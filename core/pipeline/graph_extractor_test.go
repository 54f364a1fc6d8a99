package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply string
	err   error
	last  llm.CompletionRequest
}

func (f *fakeProvider) Name() string                         { return "fake" }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Text: f.reply}, nil
}

func TestParseExtractedGraph(t *testing.T) {
	t.Run("Parse complete graph", func(t *testing.T) {
		graph, err := ParseExtractedGraph(`{
			"entities": [
				{"name": "Acme Corp", "type": "Company"},
				{"name": "Widget Ltd", "type": "company"},
				{"name": "Jane Doe", "type": "Person"},
				{"name": "USD 2 billion", "type": "Financial Value"}
			],
			"relationships": [
				{"source": "Acme Corp", "target": "Widget Ltd", "type": "ACQUIRED"},
				{"source": "Jane Doe", "target": "Acme Corp", "type": "is_ceo_of"},
				{"source": "Acme Corp", "target": "USD 2 billion", "type": "DEAL_VALUE_IS"}
			]
		}`)
		require.NoError(t, err)
		assert.Len(t, graph.Entities, 4)
		assert.Equal(t, model.EntityCompany, graph.Entities[1].Type)
		assert.Equal(t, model.EntityFinancialValue, graph.Entities[3].Type)
		require.Len(t, graph.Relationships, 3)
		assert.Equal(t, model.RelationIsCEOOf, graph.Relationships[1].Type)
	})

	t.Run("Code fences and missing keys are tolerated", func(t *testing.T) {
		graph, err := ParseExtractedGraph("```json\n{\"entities\": [{\"name\": \"Acme\", \"type\": \"Company\"}]}\n```")
		require.NoError(t, err)
		assert.Len(t, graph.Entities, 1)
		assert.Empty(t, graph.Relationships)
	})

	t.Run("Unknown types and empty names are dropped", func(t *testing.T) {
		graph, err := ParseExtractedGraph(`{
			"entities": [
				{"name": "Acme", "type": "Company"},
				{"name": "Berlin", "type": "Location"},
				{"name": "  ", "type": "Person"}
			],
			"relationships": [
				{"source": "Acme", "target": "Berlin", "type": "LOCATED_IN"},
				{"source": "", "target": "Acme", "type": "ACQUIRED"}
			]
		}`)
		require.NoError(t, err)
		require.Len(t, graph.Entities, 1)
		assert.Equal(t, "Acme", graph.Entities[0].Name)
		assert.Empty(t, graph.Relationships)
	})

	t.Run("Duplicates are removed", func(t *testing.T) {
		graph, err := ParseExtractedGraph(`{
			"entities": [
				{"name": "Acme  Corp", "type": "Company"},
				{"name": "acme corp", "type": "Company"}
			],
			"relationships": [
				{"source": "Acme Corp", "target": "Widget", "type": "ACQUIRED"},
				{"source": "ACME CORP", "target": "widget", "type": "ACQUIRED"},
				{"source": "Acme Corp", "target": "acme corp", "type": "ACQUIRED"}
			]
		}`)
		require.NoError(t, err)
		assert.Len(t, graph.Entities, 2, "Expected Acme Corp once plus the inferred Widget")
		assert.Equal(t, "Acme Corp", graph.Entities[0].Name, "Expected whitespace to be collapsed")
		assert.Len(t, graph.Relationships, 1, "Expected duplicate and self relationships to be dropped")
	})

	t.Run("Missing endpoints are added with the schema type", func(t *testing.T) {
		graph, err := ParseExtractedGraph(`{
			"entities": [],
			"relationships": [
				{"source": "John Smith", "target": "Acme", "type": "IS_CEO_OF"},
				{"source": "Acme", "target": "Fintech", "type": "OPERATES_IN"}
			]
		}`)
		require.NoError(t, err)

		person, found := graph.EntityFor("john smith", model.EntityPerson)
		require.True(t, found)
		assert.Equal(t, model.EntityPerson, person.Type)

		industry, found := graph.EntityFor("Fintech", model.EntityIndustry)
		require.True(t, found)
		assert.Equal(t, model.EntityIndustry, industry.Type)

		assert.Len(t, graph.Entities, 3)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		_, err := ParseExtractedGraph("no graph here")
		assert.Error(t, err)

		_, err = ParseExtractedGraph(`{"entities": "wrong"}`)
		assert.Error(t, err)
	})
}

func TestLLMGraphExtractor(t *testing.T) {
	t.Run("Extractor prompts in JSON mode", func(t *testing.T) {
		provider := &fakeProvider{reply: `{"entities":[{"name":"Acme","type":"Company"}],"relationships":[]}`}
		extract := LLMGraphExtractor(provider, "gpt-4o-mini")

		graph, err := extract(context.Background(), "Acme announced results.")
		require.NoError(t, err)
		assert.Len(t, graph.Entities, 1)
		assert.True(t, provider.last.JSON)
		assert.Equal(t, "gpt-4o-mini", provider.last.Model)
		assert.Contains(t, provider.last.Prompt, "Acme announced results.")
	})

	t.Run("Provider error", func(t *testing.T) {
		extract := LLMGraphExtractor(&fakeProvider{err: errors.New("rate limited")}, "")
		_, err := extract(context.Background(), "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("Empty text skips the provider", func(t *testing.T) {
		provider := &fakeProvider{err: errors.New("should not be called")}
		graph, err := LLMGraphExtractor(provider, "")(context.Background(), " ")
		require.NoError(t, err)
		assert.Empty(t, graph.Entities)
	})

	t.Run("Nil provider", func(t *testing.T) {
		_, err := LLMGraphExtractor(nil, "")(context.Background(), "text")
		assert.Error(t, err)
	})
}

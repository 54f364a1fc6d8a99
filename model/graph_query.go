package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultGraphLimit = 25
	MaxGraphLimit     = 100
)

// NodePattern constrains one end of a relationship. Empty fields match anything.
type NodePattern struct {
	Type EntityType `json:"type,omitempty"`
	Name string     `json:"name,omitempty"`
}

func (n NodePattern) isEmpty() bool {
	return n.Type == "" && strings.TrimSpace(n.Name) == ""
}

// GraphQuery matches (source)-[relation]->(target) triples. Names are
// compared as case-insensitive substrings.
type GraphQuery struct {
	Source   NodePattern  `json:"source"`
	Relation RelationType `json:"relation,omitempty"`
	Target   NodePattern  `json:"target"`
	Limit    int          `json:"limit,omitempty"`
}

// ParseGraphQuery decodes a query from LLM output. Surrounding prose and
// markdown code fences are ignored, labels are normalized and the query is
// validated.
func ParseGraphQuery(text string) (*GraphQuery, error) {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var loose struct {
		Source   map[string]string `json:"source"`
		Relation string            `json:"relation"`
		Target   map[string]string `json:"target"`
		Limit    int               `json:"limit"`
	}
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return nil, fmt.Errorf("decode graph query: %w", err)
	}

	q := &GraphQuery{Limit: loose.Limit}
	if q.Source, err = parseNodePattern(loose.Source); err != nil {
		return nil, err
	}
	if q.Target, err = parseNodePattern(loose.Target); err != nil {
		return nil, err
	}
	if strings.TrimSpace(loose.Relation) != "" {
		rt, ok := ParseRelationType(loose.Relation)
		if !ok {
			return nil, fmt.Errorf("unknown relation %q", loose.Relation)
		}
		q.Relation = rt
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func parseNodePattern(m map[string]string) (NodePattern, error) {
	n := NodePattern{Name: strings.TrimSpace(m["name"])}
	if t := strings.TrimSpace(m["type"]); t != "" {
		et, ok := ParseEntityType(t)
		if !ok {
			return n, fmt.Errorf("unknown node type %q", t)
		}
		n.Type = et
	}
	return n, nil
}

// Validate rejects unknown labels and unconstrained queries and clamps the limit.
func (q *GraphQuery) Validate() error {
	if q.Source.Type != "" && !q.Source.Type.IsValid() {
		return fmt.Errorf("unknown source type %q", q.Source.Type)
	}
	if q.Target.Type != "" && !q.Target.Type.IsValid() {
		return fmt.Errorf("unknown target type %q", q.Target.Type)
	}
	if q.Relation != "" && !q.Relation.IsValid() {
		return fmt.Errorf("unknown relation %q", q.Relation)
	}
	if q.Source.isEmpty() && q.Target.isEmpty() && q.Relation == "" {
		return fmt.Errorf("graph query has no constraints")
	}

	if q.Limit <= 0 {
		q.Limit = DefaultGraphLimit
	}
	if q.Limit > MaxGraphLimit {
		q.Limit = MaxGraphLimit
	}
	return nil
}

// ExtractJSONObject returns the outermost JSON object in text, skipping
// code fences and any prose around it.
func ExtractJSONObject(text string) (string, error) {
	text = StripCodeFences(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found")
	}
	return text[start : end+1], nil
}

// StripCodeFences removes a surrounding markdown code fence such as ```json.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType is a node label of the knowledge graph.
type EntityType string

const (
	EntityCompany        EntityType = "Company"
	EntityPerson         EntityType = "Person"
	EntityIndustry       EntityType = "Industry"
	EntityFinancialValue EntityType = "FinancialValue"
)

// EntityTypes lists every node label in schema order.
var EntityTypes = []EntityType{EntityCompany, EntityPerson, EntityIndustry, EntityFinancialValue}

func (t EntityType) IsValid() bool {
	for _, et := range EntityTypes {
		if t == et {
			return true
		}
	}
	return false
}

// ParseEntityType matches a label case-insensitively, ignoring spaces and
// underscores, so "financial value" and "FINANCIAL_VALUE" both resolve.
func ParseEntityType(s string) (EntityType, bool) {
	normalized := normalizeLabel(s)
	for _, et := range EntityTypes {
		if normalizeLabel(string(et)) == normalized {
			return et, true
		}
	}
	return "", false
}

// Entity is a named node of the knowledge graph.
type Entity struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Type      EntityType `json:"entity_type"`
	Metadata  Metadata   `json:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NormalizeName is the merge key of an entity name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

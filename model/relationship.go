package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RelationType is an edge label of the knowledge graph.
type RelationType string

const (
	RelationAcquired    RelationType = "ACQUIRED"
	RelationIsCEOOf     RelationType = "IS_CEO_OF"
	RelationOperatesIn  RelationType = "OPERATES_IN"
	RelationDealValueIs RelationType = "DEAL_VALUE_IS"
)

// RelationTypes lists every edge label in schema order.
var RelationTypes = []RelationType{RelationAcquired, RelationIsCEOOf, RelationOperatesIn, RelationDealValueIs}

// RelationSchema is the expected source and target label of each edge label.
var RelationSchema = map[RelationType][2]EntityType{
	RelationAcquired:    {EntityCompany, EntityCompany},
	RelationIsCEOOf:     {EntityPerson, EntityCompany},
	RelationOperatesIn:  {EntityCompany, EntityIndustry},
	RelationDealValueIs: {EntityCompany, EntityFinancialValue},
}

func (t RelationType) IsValid() bool {
	_, ok := RelationSchema[t]
	return ok
}

// ParseRelationType matches a label case-insensitively; spaces and dashes
// are treated as underscores.
func ParseRelationType(s string) (RelationType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	rt := RelationType(s)
	return rt, rt.IsValid()
}

// Relationship is a directed, typed edge between two entities, attributed
// to the article it was extracted from.
type Relationship struct {
	ID             uuid.UUID    `json:"id"`
	SourceEntityID uuid.UUID    `json:"source_entity_id"`
	TargetEntityID uuid.UUID    `json:"target_entity_id"`
	Type           RelationType `json:"relation_type"`
	ArticleID      *int64       `json:"article_id,omitempty"`
	Weight         float64      `json:"weight"`
	Metadata       Metadata     `json:"metadata,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// GraphRecord is one matched (source)-[relation]->(target) triple.
type GraphRecord struct {
	SourceName  string       `json:"source_name"`
	SourceType  EntityType   `json:"source_type"`
	Relation    RelationType `json:"relation"`
	TargetName  string       `json:"target_name"`
	TargetType  EntityType   `json:"target_type"`
	ArticleURLs []string     `json:"article_urls,omitempty"`
}

func (r *GraphRecord) String() string {
	line := fmt.Sprintf("%s (%s) -[%s]-> %s (%s)", r.SourceName, r.SourceType, r.Relation, r.TargetName, r.TargetType)
	if len(r.ArticleURLs) > 0 {
		line += " sources: " + strings.Join(r.ArticleURLs, ", ")
	}
	return line
}

// TraversalNode is an entity reached during a graph traversal.
type TraversalNode struct {
	Entity   *Entity       `json:"entity"`
	Distance int           `json:"distance"`
	Path     []uuid.UUID   `json:"path"`
	Via      *Relationship `json:"via,omitempty"`
}

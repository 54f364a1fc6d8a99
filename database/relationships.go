package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	loadSql "github.com/siherrmann/dealgraph/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	MergeRelationship(relationship *model.Relationship) error
	SelectRelationship(id uuid.UUID) (*model.Relationship, error)
	SelectRelationshipsFromEntity(entityID uuid.UUID, relationType model.RelationType) ([]*model.Relationship, error)
	SelectRelationshipsToEntity(entityID uuid.UUID, relationType model.RelationType) ([]*model.Relationship, error)
	SelectRelationshipsConnectedToEntity(entityID uuid.UUID) ([]*model.Relationship, error)
	MatchRelationships(query *model.GraphQuery) ([]*model.GraphRecord, error)
	DeleteRelationship(id uuid.UUID) error
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// The articles and entities tables must exist already.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// MergeRelationship inserts the relationship unless the same typed edge
// between the same entities was already recorded for the same article.
func (h *RelationshipsDBHandler) MergeRelationship(relationship *model.Relationship) error {
	if !relationship.Type.IsValid() {
		return helper.NewError("merge relationship", fmt.Errorf("invalid relation type %q", relationship.Type))
	}
	if relationship.Weight == 0 {
		relationship.Weight = 1.0
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM merge_relationship($1, $2, $3, $4, $5, $6)`,
		relationship.SourceEntityID,
		relationship.TargetEntityID,
		string(relationship.Type),
		relationship.ArticleID,
		relationship.Weight,
		relationship.Metadata,
	)

	err := scanRelationship(row, relationship)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRelationship retrieves a relationship by ID
func (h *RelationshipsDBHandler) SelectRelationship(id uuid.UUID) (*model.Relationship, error) {
	relationship := &model.Relationship{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_relationship($1)`, id)

	err := scanRelationship(row, relationship)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return relationship, nil
}

// SelectRelationshipsFromEntity retrieves outgoing relationships, optionally of one type
func (h *RelationshipsDBHandler) SelectRelationshipsFromEntity(entityID uuid.UUID, relationType model.RelationType) ([]*model.Relationship, error) {
	return h.queryRelationships(
		`SELECT * FROM select_relationships_from_entity($1, $2)`,
		entityID,
		nullableString(string(relationType)),
	)
}

// SelectRelationshipsToEntity retrieves incoming relationships, optionally of one type
func (h *RelationshipsDBHandler) SelectRelationshipsToEntity(entityID uuid.UUID, relationType model.RelationType) ([]*model.Relationship, error) {
	return h.queryRelationships(
		`SELECT * FROM select_relationships_to_entity($1, $2)`,
		entityID,
		nullableString(string(relationType)),
	)
}

// SelectRelationshipsConnectedToEntity retrieves relationships in both directions
func (h *RelationshipsDBHandler) SelectRelationshipsConnectedToEntity(entityID uuid.UUID) ([]*model.Relationship, error) {
	return h.queryRelationships(`SELECT * FROM select_relationships_connected_to_entity($1)`, entityID)
}

// MatchRelationships executes a graph query. Identical triples asserted by
// several articles are returned once with all their article URLs.
func (h *RelationshipsDBHandler) MatchRelationships(query *model.GraphQuery) ([]*model.GraphRecord, error) {
	if query == nil {
		return nil, helper.NewError("match relationships", fmt.Errorf("query is nil"))
	}
	if err := query.Validate(); err != nil {
		return nil, helper.NewError("validate query", err)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM match_relationships($1, $2, $3, $4, $5, $6)`,
		nullableString(string(query.Source.Type)),
		nullableString(containsPattern(query.Source.Name)),
		nullableString(string(query.Relation)),
		nullableString(string(query.Target.Type)),
		nullableString(containsPattern(query.Target.Name)),
		query.Limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	records := []*model.GraphRecord{}
	for rows.Next() {
		record := &model.GraphRecord{}
		var sourceType, relation, targetType string
		err := rows.Scan(
			&record.SourceName,
			&sourceType,
			&relation,
			&record.TargetName,
			&targetType,
			pq.Array(&record.ArticleURLs),
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		record.SourceType = model.EntityType(sourceType)
		record.Relation = model.RelationType(relation)
		record.TargetType = model.EntityType(targetType)

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a name into a LIKE pattern matching normalized names
// that contain it. An empty name yields no pattern.
func containsPattern(name string) string {
	normalized := model.NormalizeName(name)
	if normalized == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(normalized) + "%"
}

// DeleteRelationship deletes a relationship by ID
func (h *RelationshipsDBHandler) DeleteRelationship(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_relationship($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *RelationshipsDBHandler) queryRelationships(query string, args ...interface{}) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relationships []*model.Relationship
	for rows.Next() {
		relationship := &model.Relationship{}
		err := scanRelationship(rows, relationship)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relationships = append(relationships, relationship)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

func scanRelationship(row scanner, relationship *model.Relationship) error {
	var relationType string
	err := row.Scan(
		&relationship.ID,
		&relationship.SourceEntityID,
		&relationship.TargetEntityID,
		&relationType,
		&relationship.ArticleID,
		&relationship.Weight,
		&relationship.Metadata,
		&relationship.CreatedAt,
	)
	if err != nil {
		return err
	}
	relationship.Type = model.RelationType(relationType)
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	loadSql "github.com/siherrmann/dealgraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	MergeEntity(entity *model.Entity) error
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(name string, entityType model.EntityType) (*model.Entity, error)
	SelectEntitiesBySearch(searchTerm string, entityType model.EntityType, limit int) ([]*model.Entity, error)
	SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error)
	DeleteEntity(id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// MergeEntity inserts the entity or returns the existing one with the same
// normalized name and type. Metadata of an existing entity is merged.
func (h *EntitiesDBHandler) MergeEntity(entity *model.Entity) error {
	if strings.TrimSpace(entity.Name) == "" {
		return helper.NewError("merge entity", fmt.Errorf("entity name is empty"))
	}
	if !entity.Type.IsValid() {
		return helper.NewError("merge entity", fmt.Errorf("invalid entity type %q", entity.Type))
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM merge_entity($1, $2, $3)`,
		entity.Name,
		string(entity.Type),
		entity.Metadata,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteEntity deletes an entity and its relationships
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_entity($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_entity($1)`, id)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByName retrieves an entity by normalized name. An empty type matches any type.
func (h *EntitiesDBHandler) SelectEntityByName(name string, entityType model.EntityType) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2)`,
		name,
		nullableString(string(entityType)),
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesBySearch searches entities by name substring, optionally restricted to a type
func (h *EntitiesDBHandler) SelectEntitiesBySearch(searchTerm string, entityType model.EntityType, limit int) ([]*model.Entity, error) {
	return h.queryEntities(
		`SELECT * FROM search_entities($1, $2, $3)`,
		searchTerm,
		nullableString(string(entityType)),
		limit,
	)
}

// SelectEntitiesByType retrieves entities by type
func (h *EntitiesDBHandler) SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error) {
	return h.queryEntities(`SELECT * FROM select_entities_by_type($1, $2)`, string(entityType), limit)
}

func (h *EntitiesDBHandler) queryEntities(query string, args ...interface{}) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

func scanEntity(row scanner, entity *model.Entity) error {
	var entityType string
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entityType,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return err
	}
	entity.Type = model.EntityType(entityType)
	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

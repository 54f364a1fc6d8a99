package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/dealgraph/helper"
)

// ChangeIndexType rebuilds the vector index over searchable passages.
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *PassagesDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := intParam(params, "m", 16)
		efConstruction := intParam(params, "ef_construction", 64)

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_passages_embedding ON passages USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d) WHERE kind = 'searchable';`,
			m, efConstruction,
		)

	case "ivfflat":
		lists := intParam(params, "lists", 100)

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_passages_embedding ON passages USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d) WHERE kind = 'searchable';`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_passages_embedding;`)
	if err != nil {
		_ = tx.Rollback()
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		_ = tx.Rollback()
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Changed vector index", "type", indexType, "params", params)

	return nil
}

// intParam reads a positive int parameter, accepting the numeric types
// produced by flag parsing and JSON decoding.
func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}

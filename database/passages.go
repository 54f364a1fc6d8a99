package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	loadSql "github.com/siherrmann/dealgraph/sql"
)

// DefaultBatchSize is the number of passages written per batch.
const DefaultBatchSize = 100

// PassagesDBHandlerFunctions defines the interface for Passages database operations.
type PassagesDBHandlerFunctions interface {
	InsertPassage(passage *model.Passage) error
	InsertPassages(passages []*model.Passage, batchSize int) error
	ReplacePassages(articleRID uuid.UUID, passages []*model.Passage, batchSize int) error
	SelectPassage(id int64) (*model.Passage, error)
	SelectPassagesByArticle(articleRID uuid.UUID, kind model.PassageKind) ([]*model.Passage, error)
	SelectPassagesBySimilarity(embedding []float32, limit int, articleRIDs []uuid.UUID) ([]*model.Passage, error)
	CountPassagesByArticle(articleRID uuid.UUID) (int, int, error)
	DeletePassagesByArticle(articleRID uuid.UUID) error
	ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error
}

// PassagesDBHandler handles passage-related database operations
type PassagesDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewPassagesDBHandler creates a new passages database handler. The
// articles table must exist already.
// If force is true, it will reload the SQL functions even if they already exist.
func NewPassagesDBHandler(db *helper.Database, embeddingDim int, force bool) (*PassagesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	passagesDbHandler := &PassagesDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadPassagesSql(passagesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load passages sql", err)
	}

	err = passagesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized PassagesDBHandler", "embedding_dim", embeddingDim)

	return passagesDbHandler, nil
}

// CreateTable creates the 'passages' table with a vector column of the
// configured dimension and the HNSW index over searchable passages.
func (h *PassagesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_passages($1);`, h.embeddingDim)
	if err != nil {
		log.Panicf("error initializing passages table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table passages")

	return nil
}

// InsertPassage inserts a passage or replaces the one with the same key
func (h *PassagesDBHandler) InsertPassage(passage *model.Passage) error {
	row := h.db.Instance.QueryRow(insertPassageQuery, h.insertArgs(passage)...)

	err := scanPassage(row, passage, false)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// InsertPassages writes passages in batches of batchSize inside a single
// transaction. A failing batch rolls back every batch before it.
func (h *PassagesDBHandler) InsertPassages(passages []*model.Passage, batchSize int) error {
	return h.writePassages(nil, passages, batchSize)
}

// ReplacePassages deletes the passages of an article and inserts the new
// ones in the same transaction, so readers see either the old or the new set.
func (h *PassagesDBHandler) ReplacePassages(articleRID uuid.UUID, passages []*model.Passage, batchSize int) error {
	return h.writePassages(&articleRID, passages, batchSize)
}

func (h *PassagesDBHandler) writePassages(replaceRID *uuid.UUID, passages []*model.Passage, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	tx, err := h.db.Instance.Begin()
	if err != nil {
		return helper.NewError("begin transaction", err)
	}

	if replaceRID != nil {
		_, err = tx.Exec(`SELECT delete_passages_by_article($1)`, *replaceRID)
		if err != nil {
			_ = tx.Rollback()
			return helper.NewError("delete old passages", err)
		}
	}

	stmt, err := tx.Prepare(insertPassageQuery)
	if err != nil {
		_ = tx.Rollback()
		return helper.NewError("prepare", err)
	}
	defer stmt.Close()

	for start := 0; start < len(passages); start += batchSize {
		end := min(start+batchSize, len(passages))

		err := h.insertBatch(stmt, passages[start:end])
		if err != nil {
			_ = tx.Rollback()
			return helper.NewError(fmt.Sprintf("insert batch %d-%d", start, end), err)
		}

		h.db.Logger.Debug("Inserted passage batch", "from", start, "to", end)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}
	return nil
}

func (h *PassagesDBHandler) insertBatch(stmt *sql.Stmt, batch []*model.Passage) error {
	for _, passage := range batch {
		err := scanPassage(stmt.QueryRow(h.insertArgs(passage)...), passage, false)
		if err != nil {
			return helper.NewError(fmt.Sprintf("insert passage %s", passage.Key), err)
		}
	}
	return nil
}

// SelectPassage retrieves a passage by ID
func (h *PassagesDBHandler) SelectPassage(id int64) (*model.Passage, error) {
	passage := &model.Passage{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_passage($1)`, id)

	err := scanPassage(row, passage, false)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return passage, nil
}

// SelectPassagesByArticle retrieves the passages of an article ordered by
// index. An empty kind selects both kinds.
func (h *PassagesDBHandler) SelectPassagesByArticle(articleRID uuid.UUID, kind model.PassageKind) ([]*model.Passage, error) {
	var kindParam sql.NullString
	if kind != "" {
		kindParam = sql.NullString{String: string(kind), Valid: true}
	}

	return h.queryPassages(false, `SELECT * FROM select_passages_by_article($1, $2)`, articleRID, kindParam)
}

// SelectPassagesBySimilarity returns the searchable passages closest to the
// embedding by cosine similarity, best first. articleRIDs optionally
// restricts the search to some articles.
func (h *PassagesDBHandler) SelectPassagesBySimilarity(embedding []float32, limit int, articleRIDs []uuid.UUID) ([]*model.Passage, error) {
	if len(embedding) != h.embeddingDim {
		return nil, helper.NewError("similarity search", fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), h.embeddingDim))
	}

	var rids []string
	for _, rid := range articleRIDs {
		rids = append(rids, rid.String())
	}

	return h.queryPassages(
		true,
		`SELECT * FROM select_passages_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		pq.Array(rids),
	)
}

// CountPassagesByArticle returns the number of parent and searchable passages of an article
func (h *PassagesDBHandler) CountPassagesByArticle(articleRID uuid.UUID) (int, int, error) {
	var parents, searchable int
	err := h.db.Instance.QueryRow(`SELECT * FROM count_passages_by_article($1)`, articleRID).Scan(&parents, &searchable)
	if err != nil {
		return 0, 0, helper.NewError("scan", err)
	}
	return parents, searchable, nil
}

// DeletePassagesByArticle deletes all passages of an article
func (h *PassagesDBHandler) DeletePassagesByArticle(articleRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_passages_by_article($1)`, articleRID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

const insertPassageQuery = `SELECT * FROM insert_passage($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (h *PassagesDBHandler) insertArgs(passage *model.Passage) []interface{} {
	var embedding interface{}
	if len(passage.Embedding) > 0 {
		embedding = pgvector.NewVector(passage.Embedding)
	}

	return []interface{}{
		passage.ArticleID,
		string(passage.Kind),
		passage.Index,
		passage.Key,
		passage.Content,
		embedding,
		passage.StartPos,
		passage.EndPos,
		passage.Metadata,
	}
}

func (h *PassagesDBHandler) queryPassages(withSimilarity bool, query string, args ...interface{}) ([]*model.Passage, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var passages []*model.Passage
	for rows.Next() {
		passage := &model.Passage{}
		err := scanPassage(rows, passage, withSimilarity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		passages = append(passages, passage)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return passages, nil
}

func scanPassage(row scanner, passage *model.Passage, withSimilarity bool) error {
	var kind string
	var embedding *pgvector.Vector
	dest := []interface{}{
		&passage.ID,
		&passage.ArticleID,
		&passage.ArticleRID,
		&passage.ArticleURL,
		&kind,
		&passage.Index,
		&passage.Key,
		&passage.Content,
		&embedding,
		&passage.StartPos,
		&passage.EndPos,
		&passage.Metadata,
		&passage.CreatedAt,
	}
	if withSimilarity {
		dest = append(dest, &passage.Similarity)
	}

	err := row.Scan(dest...)
	if err != nil {
		return err
	}

	passage.Kind = model.PassageKind(kind)
	passage.Embedding = nil
	if embedding != nil {
		passage.Embedding = embedding.Slice()
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	loadSql "github.com/siherrmann/dealgraph/sql"
)

// ArticlesDBHandlerFunctions defines the interface for Articles database operations.
type ArticlesDBHandlerFunctions interface {
	InsertArticle(article *model.Article) error
	SelectArticle(rid uuid.UUID) (*model.Article, error)
	SelectArticleByURL(url string) (*model.Article, error)
	SelectAllArticles(lastCreatedAt *time.Time, lastID int64, limit int) ([]*model.Article, error)
	SelectArticlesBySearch(searchTerm string, limit int) ([]*model.Article, error)
	SelectArticleURLs() ([]string, error)
	SelectProcessedURLs() (map[string]bool, error)
	SelectArticlesPendingGraph(limit int) ([]*model.Article, error)
	MarkGraphExtracted(rid uuid.UUID) error
	DeleteArticle(rid uuid.UUID) error
}

// ArticlesDBHandler handles article-related database operations
type ArticlesDBHandler struct {
	db *helper.Database
}

// NewArticlesDBHandler creates a new articles database handler.
// It loads the article SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewArticlesDBHandler(db *helper.Database, force bool) (*ArticlesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	articlesDbHandler := &ArticlesDBHandler{
		db: db,
	}

	err := loadSql.LoadArticlesSql(articlesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load articles sql", err)
	}

	err = articlesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ArticlesDBHandler")

	return articlesDbHandler, nil
}

// CreateTable creates the 'articles' table and its indexes if missing.
func (h *ArticlesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_articles();`)
	if err != nil {
		log.Panicf("error initializing articles table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table articles")

	return nil
}

// InsertArticle inserts an article or updates the row with the same URL.
func (h *ArticlesDBHandler) InsertArticle(article *model.Article) error {
	if article.URL == "" {
		return helper.NewError("insert article", fmt.Errorf("article url is empty"))
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_article($1, $2, $3, $4)`,
		article.URL,
		article.Title,
		article.PublishedAt,
		article.Metadata,
	)

	err := scanArticle(row, article)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectArticle retrieves an article by RID
func (h *ArticlesDBHandler) SelectArticle(rid uuid.UUID) (*model.Article, error) {
	article := &model.Article{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_article($1)`, rid)

	err := scanArticle(row, article)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return article, nil
}

// SelectArticleByURL retrieves an article by its URL
func (h *ArticlesDBHandler) SelectArticleByURL(url string) (*model.Article, error) {
	article := &model.Article{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_article_by_url($1)`, url)

	err := scanArticle(row, article)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return article, nil
}

// SelectAllArticles retrieves articles newest first. The next page starts
// after the creation time and ID of the last article; a nil time starts at
// the newest article.
func (h *ArticlesDBHandler) SelectAllArticles(lastCreatedAt *time.Time, lastID int64, limit int) ([]*model.Article, error) {
	return h.queryArticles(`SELECT * FROM select_all_articles($1, $2, $3)`, lastCreatedAt, lastID, limit)
}

// SelectArticlesBySearch searches articles by title or URL
func (h *ArticlesDBHandler) SelectArticlesBySearch(searchTerm string, limit int) ([]*model.Article, error) {
	return h.queryArticles(`SELECT * FROM search_articles($1, $2)`, searchTerm, limit)
}

// SelectArticlesPendingGraph retrieves the oldest articles without an extracted graph
func (h *ArticlesDBHandler) SelectArticlesPendingGraph(limit int) ([]*model.Article, error) {
	return h.queryArticles(`SELECT * FROM select_articles_pending_graph($1)`, limit)
}

// SelectArticleURLs returns the URLs of all stored articles in alphabetical order
func (h *ArticlesDBHandler) SelectArticleURLs() ([]string, error) {
	return h.queryURLs(`SELECT * FROM select_article_urls()`)
}

// SelectProcessedURLs returns the set of URLs that already have searchable passages
func (h *ArticlesDBHandler) SelectProcessedURLs() (map[string]bool, error) {
	urls, err := h.queryURLs(`SELECT * FROM select_processed_urls()`)
	if err != nil {
		return nil, err
	}

	processed := make(map[string]bool, len(urls))
	for _, url := range urls {
		processed[url] = true
	}
	return processed, nil
}

// MarkGraphExtracted records that the knowledge graph of an article was built
func (h *ArticlesDBHandler) MarkGraphExtracted(rid uuid.UUID) error {
	var extractedAt time.Time
	err := h.db.Instance.QueryRow(`SELECT * FROM mark_article_graph_extracted($1)`, rid).Scan(&extractedAt)
	if err != nil {
		return helper.NewError("scan", err)
	}
	return nil
}

// DeleteArticle deletes an article and, by cascade, its passages
func (h *ArticlesDBHandler) DeleteArticle(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_article($1)`, rid)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *ArticlesDBHandler) queryArticles(query string, args ...interface{}) ([]*model.Article, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article := &model.Article{}
		err := scanArticle(rows, article)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		articles = append(articles, article)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return articles, nil
}

func (h *ArticlesDBHandler) queryURLs(query string) ([]string, error) {
	rows, err := h.db.Instance.Query(query)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, helper.NewError("scan", err)
		}
		urls = append(urls, url)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return urls, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scanner, article *model.Article) error {
	return row.Scan(
		&article.ID,
		&article.RID,
		&article.URL,
		&article.Title,
		&article.PublishedAt,
		&article.Metadata,
		&article.GraphExtractedAt,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
}

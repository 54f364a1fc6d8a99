package model

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Article is a scraped publication. Content is only carried through the
// indexing pipeline; the stored text lives in its parent passages.
type Article struct {
	ID               int64      `json:"id"`
	RID              uuid.UUID  `json:"rid"`
	URL              string     `json:"url"`
	Title            string     `json:"title"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	Content          string     `json:"content,omitempty" db:"-"`
	Metadata         Metadata   `json:"metadata,omitempty"`
	GraphExtractedAt *time.Time `json:"graph_extracted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ScrapedArticle is one record of a scraped articles JSON file.
type ScrapedArticle struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// ToArticle converts the record into an article ready for indexing.
func (s ScrapedArticle) ToArticle() *Article {
	return &Article{
		URL:      strings.TrimSpace(s.URL),
		Title:    strings.TrimSpace(s.Title),
		Content:  s.Content,
		Metadata: Metadata{"source": "file"},
	}
}

// NewArticleFromFile reads a local file as article content. The file path
// acts as the article URL and the file name as its title.
func NewArticleFromFile(filePath string, metadata Metadata) (*Article, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if title == "" {
		title = filename
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}

	return &Article{
		URL:      "file://" + filepath.ToSlash(absPath),
		Title:    title,
		Content:  string(content),
		Metadata: metadata,
	}, nil
}

// ArticleEvent is published once an article has been indexed.
type ArticleEvent struct {
	ArticleRID uuid.UUID `json:"article_rid"`
	URL        string    `json:"url"`
	IndexedAt  time.Time `json:"indexed_at"`
}

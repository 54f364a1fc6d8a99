package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PassageKind separates full-text parts from embedded search passages.
type PassageKind string

const (
	// PassageParent is a large ordered part used to rebuild the full article.
	PassageParent PassageKind = "parent"
	// PassageSearchable is a small overlapping passage carrying an embedding.
	PassageSearchable PassageKind = "searchable"
)

func (k PassageKind) IsValid() bool {
	return k == PassageParent || k == PassageSearchable
}

// Passage is a piece of an article.
type Passage struct {
	ID         int64       `json:"id"`
	ArticleID  int64       `json:"article_id"`
	ArticleRID uuid.UUID   `json:"article_rid"`
	ArticleURL string      `json:"article_url"`
	Kind       PassageKind `json:"kind"`
	Index      int         `json:"index"`
	Key        string      `json:"key"`
	Content    string      `json:"content"`
	Embedding  []float32   `json:"embedding,omitempty"`
	StartPos   *int        `json:"start_pos,omitempty"`
	EndPos     *int        `json:"end_pos,omitempty"`
	Metadata   Metadata    `json:"metadata,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	Similarity float64     `json:"similarity,omitempty"`
}

// PassageKey returns the stable key of the i-th passage of an article:
// <url>-part-<i> for parents and <url>-chunk-<i> for searchable passages.
func PassageKey(url string, kind PassageKind, i int) string {
	if kind == PassageParent {
		return fmt.Sprintf("%s-part-%d", url, i)
	}
	return fmt.Sprintf("%s-chunk-%d", url, i)
}

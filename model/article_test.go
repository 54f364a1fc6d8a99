package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticleFromFile(t *testing.T) {
	t.Run("Read file as article", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "merger-news.txt")
		require.NoError(t, os.WriteFile(path, []byte("Acme acquired Globex."), 0600))

		article, err := NewArticleFromFile(path, Metadata{"origin": "test"})
		require.NoError(t, err)
		assert.Equal(t, "merger-news", article.Title)
		assert.Equal(t, "Acme acquired Globex.", article.Content)
		assert.True(t, strings.HasPrefix(article.URL, "file://"), "Expected a file URL")
		assert.True(t, strings.HasSuffix(article.URL, "/merger-news.txt"))
		assert.Equal(t, "test", article.Metadata.String("origin"))
	})

	t.Run("Missing file returns error", func(t *testing.T) {
		_, err := NewArticleFromFile(filepath.Join(t.TempDir(), "missing.txt"), nil)
		assert.Error(t, err)
	})
}

func TestScrapedArticleToArticle(t *testing.T) {
	s := ScrapedArticle{URL: " https://example.com/a ", Content: "text"}
	article := s.ToArticle()
	assert.Equal(t, "https://example.com/a", article.URL)
	assert.Equal(t, "text", article.Content)
	assert.Equal(t, "file", article.Metadata.String("source"))
}

func TestPassageKey(t *testing.T) {
	assert.Equal(t, "https://example.com/a-part-0", PassageKey("https://example.com/a", PassageParent, 0))
	assert.Equal(t, "https://example.com/a-chunk-7", PassageKey("https://example.com/a", PassageSearchable, 7))
	assert.True(t, PassageParent.IsValid())
	assert.False(t, PassageKind("summary").IsValid())
}

package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassagesNewPassagesDBHandler(t *testing.T) {
	database := initDB(t)

	_, err := NewArticlesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Valid call NewPassagesDBHandler", func(t *testing.T) {
		passagesDbHandler, err := NewPassagesDBHandler(database, testEmbeddingDim, true)
		assert.NoError(t, err, "Expected NewPassagesDBHandler to not return an error")
		require.NotNil(t, passagesDbHandler, "Expected NewPassagesDBHandler to return a non-nil instance")
		assert.Equal(t, testEmbeddingDim, passagesDbHandler.embeddingDim)
	})

	t.Run("Invalid call NewPassagesDBHandler with nil database", func(t *testing.T) {
		_, err := NewPassagesDBHandler(nil, testEmbeddingDim, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})

	t.Run("Invalid call NewPassagesDBHandler with zero dimension", func(t *testing.T) {
		_, err := NewPassagesDBHandler(database, 0, false)
		assert.Error(t, err)
	})
}

func TestPassagesInsertAndSelect(t *testing.T) {
	articlesDbHandler, passagesDbHandler, _, _ := initHandlers(t)

	article := &model.Article{URL: "https://example.com/passages", Title: "Passages"}
	require.NoError(t, articlesDbHandler.InsertArticle(article))
	defer articlesDbHandler.DeleteArticle(article.RID)

	start, end := 0, 21
	parent := &model.Passage{
		ArticleID: article.ID,
		Kind:      model.PassageParent,
		Index:     0,
		Key:       model.PassageKey(article.URL, model.PassageParent, 0),
		Content:   "Acme acquired Widget.",
		StartPos:  &start,
		EndPos:    &end,
	}

	t.Run("Insert parent passage without embedding", func(t *testing.T) {
		err := passagesDbHandler.InsertPassage(parent)
		require.NoError(t, err)
		assert.NotZero(t, parent.ID)
		assert.Equal(t, article.RID, parent.ArticleRID)
		assert.Equal(t, article.URL, parent.ArticleURL)
		assert.Nil(t, parent.Embedding, "Expected parent passage to have no embedding")
		require.NotNil(t, parent.EndPos)
		assert.Equal(t, 21, *parent.EndPos)
	})

	t.Run("Insert searchable passages in batches", func(t *testing.T) {
		var passages []*model.Passage
		for i := 0; i < 5; i++ {
			passages = append(passages, &model.Passage{
				ArticleID: article.ID,
				Kind:      model.PassageSearchable,
				Index:     i,
				Key:       model.PassageKey(article.URL, model.PassageSearchable, i),
				Content:   fmt.Sprintf("chunk %d", i),
				Embedding: testEmbedding(i),
			})
		}

		err := passagesDbHandler.InsertPassages(passages, 2)
		require.NoError(t, err)
		for _, p := range passages {
			assert.NotZero(t, p.ID)
			assert.Len(t, p.Embedding, testEmbeddingDim)
		}

		parents, searchable, err := passagesDbHandler.CountPassagesByArticle(article.RID)
		require.NoError(t, err)
		assert.Equal(t, 1, parents)
		assert.Equal(t, 5, searchable)
	})

	t.Run("Insert with existing key replaces content", func(t *testing.T) {
		replacement := &model.Passage{
			ArticleID: article.ID,
			Kind:      model.PassageParent,
			Index:     0,
			Key:       parent.Key,
			Content:   "Acme acquired Widget for $1bn.",
		}
		require.NoError(t, passagesDbHandler.InsertPassage(replacement))
		assert.Equal(t, parent.ID, replacement.ID)

		retrieved, err := passagesDbHandler.SelectPassage(parent.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme acquired Widget for $1bn.", retrieved.Content)
	})

	t.Run("Select passages by article and kind", func(t *testing.T) {
		all, err := passagesDbHandler.SelectPassagesByArticle(article.RID, "")
		require.NoError(t, err)
		assert.Len(t, all, 6)

		parents, err := passagesDbHandler.SelectPassagesByArticle(article.RID, model.PassageParent)
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, model.PassageParent, parents[0].Kind)

		searchable, err := passagesDbHandler.SelectPassagesByArticle(article.RID, model.PassageSearchable)
		require.NoError(t, err)
		require.Len(t, searchable, 5)
		for i, p := range searchable {
			assert.Equal(t, i, p.Index, "Expected passages ordered by index")
		}
	})

	t.Run("Select passages by similarity", func(t *testing.T) {
		hits, err := passagesDbHandler.SelectPassagesBySimilarity(testEmbedding(3), 3, nil)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "chunk 3", hits[0].Content)
		assert.InDelta(t, 1.0, hits[0].Similarity, 0.0001)
		for _, hit := range hits {
			assert.Equal(t, model.PassageSearchable, hit.Kind, "Expected only searchable passages")
		}
	})

	t.Run("Select passages by similarity scoped to articles", func(t *testing.T) {
		hits, err := passagesDbHandler.SelectPassagesBySimilarity(testEmbedding(1), 10, []uuid.UUID{uuid.New()})
		require.NoError(t, err)
		assert.Empty(t, hits)

		hits, err = passagesDbHandler.SelectPassagesBySimilarity(testEmbedding(1), 10, []uuid.UUID{article.RID})
		require.NoError(t, err)
		assert.Len(t, hits, 5)
	})

	t.Run("Select passages by similarity with wrong dimension", func(t *testing.T) {
		_, err := passagesDbHandler.SelectPassagesBySimilarity([]float32{1, 0}, 3, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expected 384")
	})

	t.Run("Delete passages by article", func(t *testing.T) {
		err := passagesDbHandler.DeletePassagesByArticle(article.RID)
		require.NoError(t, err)

		parents, searchable, err := passagesDbHandler.CountPassagesByArticle(article.RID)
		require.NoError(t, err)
		assert.Zero(t, parents)
		assert.Zero(t, searchable)
	})
}

func TestPassagesReplace(t *testing.T) {
	articlesDbHandler, passagesDbHandler, _, _ := initHandlers(t)

	article := &model.Article{URL: "https://example.com/replace", Title: "Replace"}
	require.NoError(t, articlesDbHandler.InsertArticle(article))
	defer articlesDbHandler.DeleteArticle(article.RID)

	newPassages := func(count int, prefix string) []*model.Passage {
		var passages []*model.Passage
		for i := 0; i < count; i++ {
			passages = append(passages, &model.Passage{
				ArticleID: article.ID,
				Kind:      model.PassageSearchable,
				Index:     i,
				Key:       model.PassageKey(article.URL, model.PassageSearchable, i),
				Content:   fmt.Sprintf("%s %d", prefix, i),
				Embedding: testEmbedding(i),
			})
		}
		return passages
	}

	t.Run("Replace swaps the passage set", func(t *testing.T) {
		require.NoError(t, passagesDbHandler.InsertPassages(newPassages(8, "old"), 3))

		err := passagesDbHandler.ReplacePassages(article.RID, newPassages(4, "new"), 3)
		require.NoError(t, err)

		passages, err := passagesDbHandler.SelectPassagesByArticle(article.RID, model.PassageSearchable)
		require.NoError(t, err)
		require.Len(t, passages, 4)
		for _, p := range passages {
			assert.Contains(t, p.Content, "new")
		}
	})

	t.Run("Failing later batch keeps the previous passages", func(t *testing.T) {
		replacement := newPassages(DefaultBatchSize+20, "broken")
		replacement[DefaultBatchSize+5].Embedding = []float32{1, 0}

		err := passagesDbHandler.ReplacePassages(article.RID, replacement, DefaultBatchSize)
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprintf("insert batch %d-%d", DefaultBatchSize, DefaultBatchSize+20))

		passages, err := passagesDbHandler.SelectPassagesByArticle(article.RID, model.PassageSearchable)
		require.NoError(t, err)
		require.Len(t, passages, 4, "Expected the first batch to be rolled back with the delete")
		for _, p := range passages {
			assert.Contains(t, p.Content, "new")
		}
	})

	t.Run("Failing later batch of a fresh article leaves it unprocessed", func(t *testing.T) {
		fresh := &model.Article{URL: "https://example.com/replace-fresh", Title: "Fresh"}
		require.NoError(t, articlesDbHandler.InsertArticle(fresh))
		defer articlesDbHandler.DeleteArticle(fresh.RID)

		var passages []*model.Passage
		for i := 0; i < DefaultBatchSize+10; i++ {
			passages = append(passages, &model.Passage{
				ArticleID: fresh.ID,
				Kind:      model.PassageSearchable,
				Index:     i,
				Key:       model.PassageKey(fresh.URL, model.PassageSearchable, i),
				Content:   fmt.Sprintf("fresh %d", i),
				Embedding: testEmbedding(i),
			})
		}
		passages[DefaultBatchSize+1].Embedding = []float32{1, 0}

		err := passagesDbHandler.ReplacePassages(fresh.RID, passages, DefaultBatchSize)
		require.Error(t, err)

		_, searchable, err := passagesDbHandler.CountPassagesByArticle(fresh.RID)
		require.NoError(t, err)
		assert.Zero(t, searchable, "Expected no passages from the failed run")

		processed, err := articlesDbHandler.SelectProcessedURLs()
		require.NoError(t, err)
		assert.False(t, processed[fresh.URL], "Expected a failed run not to count as processed")
	})
}

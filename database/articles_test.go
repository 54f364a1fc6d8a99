package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/dealgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticlesNewArticlesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewArticlesDBHandler", func(t *testing.T) {
		articlesDbHandler, err := NewArticlesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewArticlesDBHandler to not return an error")
		require.NotNil(t, articlesDbHandler, "Expected NewArticlesDBHandler to return a non-nil instance")
		require.NotNil(t, articlesDbHandler.db, "Expected NewArticlesDBHandler to have a non-nil database instance")
		require.NotNil(t, articlesDbHandler.db.Instance, "Expected NewArticlesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewArticlesDBHandler with nil database", func(t *testing.T) {
		_, err := NewArticlesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating ArticlesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestArticlesInsert(t *testing.T) {
	articlesDbHandler, _, _, _ := initHandlers(t)

	t.Run("Insert article", func(t *testing.T) {
		article := &model.Article{
			URL:      "https://example.com/insert-article",
			Title:    "Acme buys Widget",
			Metadata: model.Metadata{"source": "test"},
		}

		err := articlesDbHandler.InsertArticle(article)
		assert.NoError(t, err, "Expected InsertArticle to not return an error")
		assert.NotEqual(t, uuid.Nil, article.RID, "Expected inserted article to have a RID")
		assert.NotZero(t, article.ID, "Expected inserted article to have an ID")
		assert.WithinDuration(t, time.Now(), article.CreatedAt, 5*time.Second, "Expected CreatedAt to be set")
		assert.Nil(t, article.GraphExtractedAt, "Expected new article to have no graph yet")
		assert.Equal(t, "test", article.Metadata.String("source"))

		articlesDbHandler.DeleteArticle(article.RID)
	})

	t.Run("Insert same URL updates the article", func(t *testing.T) {
		article := &model.Article{URL: "https://example.com/upsert-article", Title: "Old title"}
		require.NoError(t, articlesDbHandler.InsertArticle(article))

		updated := &model.Article{URL: article.URL, Title: "New title"}
		require.NoError(t, articlesDbHandler.InsertArticle(updated))

		assert.Equal(t, article.RID, updated.RID, "Expected upsert to keep the RID")
		assert.Equal(t, "New title", updated.Title)

		articlesDbHandler.DeleteArticle(article.RID)
	})

	t.Run("Insert article without URL", func(t *testing.T) {
		err := articlesDbHandler.InsertArticle(&model.Article{Title: "No URL"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "article url is empty")
	})
}

func TestArticlesSelect(t *testing.T) {
	articlesDbHandler, passagesDbHandler, _, _ := initHandlers(t)

	article := &model.Article{URL: "https://example.com/select-article", Title: "Merger news"}
	require.NoError(t, articlesDbHandler.InsertArticle(article))
	defer articlesDbHandler.DeleteArticle(article.RID)

	t.Run("Select by RID", func(t *testing.T) {
		retrieved, err := articlesDbHandler.SelectArticle(article.RID)
		assert.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, article.URL, retrieved.URL)
		assert.Equal(t, article.Title, retrieved.Title)
	})

	t.Run("Select by URL", func(t *testing.T) {
		retrieved, err := articlesDbHandler.SelectArticleByURL(article.URL)
		assert.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, article.RID, retrieved.RID)
	})

	t.Run("Select unknown URL", func(t *testing.T) {
		_, err := articlesDbHandler.SelectArticleByURL("https://example.com/does-not-exist")
		assert.Error(t, err, "Expected error for unknown URL")
	})

	t.Run("Search by title", func(t *testing.T) {
		found, err := articlesDbHandler.SelectArticlesBySearch("merger", 10)
		assert.NoError(t, err)
		assert.NotEmpty(t, found)
	})

	t.Run("Select all with pagination", func(t *testing.T) {
		all, err := articlesDbHandler.SelectAllArticles(nil, 0, 10)
		assert.NoError(t, err)
		assert.NotEmpty(t, all)

		page, err := articlesDbHandler.SelectAllArticles(nil, 0, 1)
		assert.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("Processed URLs require searchable passages", func(t *testing.T) {
		processed, err := articlesDbHandler.SelectProcessedURLs()
		require.NoError(t, err)
		assert.False(t, processed[article.URL], "Expected article without passages to be unprocessed")

		passage := &model.Passage{
			ArticleID: article.ID,
			Kind:      model.PassageSearchable,
			Index:     0,
			Key:       model.PassageKey(article.URL, model.PassageSearchable, 0),
			Content:   "Acme acquired Widget.",
			Embedding: testEmbedding(0),
		}
		require.NoError(t, passagesDbHandler.InsertPassage(passage))

		processed, err = articlesDbHandler.SelectProcessedURLs()
		require.NoError(t, err)
		assert.True(t, processed[article.URL], "Expected article with searchable passage to be processed")

		urls, err := articlesDbHandler.SelectArticleURLs()
		require.NoError(t, err)
		assert.Contains(t, urls, article.URL)
	})
}

func TestArticlesPendingGraph(t *testing.T) {
	articlesDbHandler, _, _, _ := initHandlers(t)

	article := &model.Article{URL: "https://example.com/pending-graph", Title: "Pending"}
	require.NoError(t, articlesDbHandler.InsertArticle(article))
	defer articlesDbHandler.DeleteArticle(article.RID)

	pending, err := articlesDbHandler.SelectArticlesPendingGraph(1000)
	require.NoError(t, err)
	assert.True(t, containsArticle(pending, article.RID), "Expected new article to be pending")

	err = articlesDbHandler.MarkGraphExtracted(article.RID)
	require.NoError(t, err)

	pending, err = articlesDbHandler.SelectArticlesPendingGraph(1000)
	require.NoError(t, err)
	assert.False(t, containsArticle(pending, article.RID), "Expected marked article to not be pending")

	retrieved, err := articlesDbHandler.SelectArticle(article.RID)
	require.NoError(t, err)
	assert.NotNil(t, retrieved.GraphExtractedAt)

	t.Run("Mark unknown article", func(t *testing.T) {
		err := articlesDbHandler.MarkGraphExtracted(uuid.New())
		assert.Error(t, err)
	})
}

func TestArticlesSelectAllPaging(t *testing.T) {
	articlesDbHandler, _, _, _ := initHandlers(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		article := &model.Article{URL: fmt.Sprintf("https://example.com/same-time-%d", i), Title: "Same time"}
		require.NoError(t, articlesDbHandler.InsertArticle(article))
		defer articlesDbHandler.DeleteArticle(article.RID)
		ids = append(ids, article.ID)
	}

	sameTime := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := articlesDbHandler.db.Instance.Exec(`UPDATE articles SET created_at = $1 WHERE id = ANY($2)`, sameTime, pq.Array(ids))
	require.NoError(t, err)

	t.Run("Equal timestamps at a page boundary are not skipped", func(t *testing.T) {
		first, err := articlesDbHandler.SelectAllArticles(nil, 0, 2)
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.Equal(t, ids[2], first[0].ID)
		assert.Equal(t, ids[1], first[1].ID)

		last := first[1]
		second, err := articlesDbHandler.SelectAllArticles(&last.CreatedAt, last.ID, 2)
		require.NoError(t, err)
		require.NotEmpty(t, second)
		assert.Equal(t, ids[0], second[0].ID, "Expected the third article with the same timestamp on the next page")
		for _, article := range second {
			assert.NotContains(t, []int64{ids[1], ids[2]}, article.ID, "Expected no repeats across pages")
		}
	})
}

func containsArticle(articles []*model.Article, rid uuid.UUID) bool {
	for _, a := range articles {
		if a.RID == rid {
			return true
		}
	}
	return false
}

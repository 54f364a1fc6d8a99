package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siherrmann/dealgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedFunc returns a tiny embedding derived from the text length
func mockEmbedFunc(text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("empty text")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestPipelineProcess(t *testing.T) {
	article := &model.Article{
		URL:     "https://example.com/deal",
		Title:   "Deal",
		Content: strings.Repeat("Acme agreed to buy Widget in an all-cash deal. ", 40),
	}

	t.Run("Process creates parents and embedded passages", func(t *testing.T) {
		p := NewPipeline(RecursiveSplitter(1000, 0), RecursiveSplitter(200, 20), mockEmbedFunc)

		result, err := p.Process(article)
		require.NoError(t, err)
		require.NotEmpty(t, result.Parents)
		require.NotEmpty(t, result.Passages)

		for i, parent := range result.Parents {
			assert.Equal(t, model.PassageParent, parent.Kind)
			assert.Equal(t, i, parent.Index)
			assert.Equal(t, model.PassageKey(article.URL, model.PassageParent, i), parent.Key)
			assert.Nil(t, parent.Embedding, "Expected parent passages to have no embedding")
			require.NotNil(t, parent.StartPos)
		}

		for i, passage := range result.Passages {
			assert.Equal(t, model.PassageSearchable, passage.Kind)
			assert.Equal(t, model.PassageKey(article.URL, model.PassageSearchable, i), passage.Key)
			assert.Len(t, passage.Embedding, 3)
			assert.Equal(t, article.URL, passage.ArticleURL)
		}

		assert.Len(t, result.All(), len(result.Parents)+len(result.Passages))
	})

	t.Run("Parents without overlap rebuild the article", func(t *testing.T) {
		p := NewPipeline(RecursiveSplitter(300, 0), RecursiveSplitter(200, 20), mockEmbedFunc)

		result, err := p.Process(article)
		require.NoError(t, err)

		var rebuilt []string
		for _, parent := range result.Parents {
			rebuilt = append(rebuilt, parent.Content)
		}
		assert.Equal(t, strings.Fields(article.Content), strings.Fields(strings.Join(rebuilt, " ")))
	})

	t.Run("Default pipeline uses a single parent for short articles", func(t *testing.T) {
		result, err := DefaultPipeline(mockEmbedFunc).Process(article)
		require.NoError(t, err)
		assert.Len(t, result.Parents, 1)
		assert.Greater(t, len(result.Passages), 1)
	})

	t.Run("Embedding error stops processing", func(t *testing.T) {
		failing := func(text string) ([]float32, error) { return nil, errors.New("model unavailable") }
		_, err := DefaultPipeline(failing).Process(article)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model unavailable")
	})

	t.Run("Invalid articles", func(t *testing.T) {
		p := DefaultPipeline(mockEmbedFunc)

		_, err := p.Process(&model.Article{URL: "https://example.com/empty", Content: "  "})
		assert.Error(t, err)

		_, err = p.Process(&model.Article{Content: "text"})
		assert.Error(t, err)

		_, err = (&Pipeline{}).Process(article)
		assert.Error(t, err)
	})
}

func TestPipelineExtractGraph(t *testing.T) {
	p := DefaultPipeline(mockEmbedFunc)

	t.Run("Extractor not set", func(t *testing.T) {
		_, err := p.ExtractGraph(context.Background(), "text")
		assert.Error(t, err)
	})

	t.Run("Extractor set", func(t *testing.T) {
		p.SetGraphExtractor(func(ctx context.Context, text string) (*ExtractedGraph, error) {
			return &ExtractedGraph{Entities: []ExtractedEntity{{Name: "Acme", Type: model.EntityCompany}}}, nil
		})
		graph, err := p.ExtractGraph(context.Background(), "text")
		require.NoError(t, err)
		assert.Len(t, graph.Entities, 1)
	})
}

package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/core/graph"
	"github.com/siherrmann/dealgraph/database"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// Engine answers retrieval requests over the passage and graph tables
type Engine struct {
	articles      *database.ArticlesDBHandler
	passages      *database.PassagesDBHandler
	entities      *database.EntitiesDBHandler
	relationships *database.RelationshipsDBHandler
}

// NewEngine creates a new retrieval engine
func NewEngine(
	articles *database.ArticlesDBHandler,
	passages *database.PassagesDBHandler,
	entities *database.EntitiesDBHandler,
	relationships *database.RelationshipsDBHandler,
) *Engine {
	return &Engine{
		articles:      articles,
		passages:      passages,
		entities:      entities,
		relationships: relationships,
	}
}

// SemanticSearch returns the TopK searchable passages closest to the
// embedding. The result is confident when the best hit reaches the
// confidence threshold.
func (e *Engine) SemanticSearch(ctx context.Context, embedding []float32, config model.QueryConfig) (*model.SemanticResult, error) {
	config = config.WithDefaults()

	hits, err := e.passages.SelectPassagesBySimilarity(embedding, config.TopK, nil)
	if err != nil {
		return nil, helper.NewError("similarity search", err)
	}

	return NewSemanticResult(hits, config), nil
}

// NewSemanticResult derives confidence and URL lists from ranked hits.
func NewSemanticResult(hits []*model.Passage, config model.QueryConfig) *model.SemanticResult {
	config = config.WithDefaults()
	if hits == nil {
		hits = []*model.Passage{}
	}

	result := &model.SemanticResult{
		Hits:        hits,
		RelatedURLs: uniqueURLs(hits),
	}
	result.Confident = len(hits) > 0 && result.TopScore() >= config.ConfidenceThreshold

	contextHits := hits
	if len(contextHits) > config.ContextArticles {
		contextHits = contextHits[:config.ContextArticles]
	}
	result.ContextURLs = uniqueURLs(contextHits)

	return result
}

// ReconstructArticle joins the parent passages of an article in order.
// An unknown URL yields an empty text.
func (e *Engine) ReconstructArticle(ctx context.Context, url string) (string, error) {
	article, err := e.articles.SelectArticleByURL(url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", helper.NewError("select article", err)
	}

	parents, err := e.passages.SelectPassagesByArticle(article.RID, model.PassageParent)
	if err != nil {
		return "", helper.NewError("select parent passages", err)
	}

	parts := make([]string, 0, len(parents))
	for _, p := range parents {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// ArticleContext reconstructs several articles into one analyst context.
// Articles without stored text are left out.
func (e *Engine) ArticleContext(ctx context.Context, urls []string) (string, error) {
	var b strings.Builder
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := e.ReconstructArticle(ctx, url)
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n--- Article from %s ---\n%s", url, text)
	}
	return b.String(), nil
}

// MatchGraph executes a structured graph query
func (e *Engine) MatchGraph(ctx context.Context, query *model.GraphQuery) ([]*model.GraphRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.relationships.MatchRelationships(query)
}

// SearchEntities finds entities by name substring, optionally of one type
func (e *Engine) SearchEntities(ctx context.Context, term string, entityType model.EntityType, limit int) ([]*model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.entities.SelectEntitiesBySearch(term, entityType, limit)
}

// EntityBFS returns the entities within maxHops of an entity, nearest first
func (e *Engine) EntityBFS(ctx context.Context, entityID uuid.UUID, maxHops int, relationTypes []model.RelationType) ([]*model.TraversalNode, error) {
	return graph.BFS(ctx, e, entityID, graph.Options{MaxHops: maxHops, RelationTypes: relationTypes})
}

// EntityDFS returns the entities within maxHops of an entity, depth first
func (e *Engine) EntityDFS(ctx context.Context, entityID uuid.UUID, maxHops int, relationTypes []model.RelationType) ([]*model.TraversalNode, error) {
	return graph.DFS(ctx, e, entityID, graph.Options{MaxHops: maxHops, RelationTypes: relationTypes})
}

// GetEntity implements graph.GraphDB
func (e *Engine) GetEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	return e.entities.SelectEntity(id)
}

// GetRelationships implements graph.GraphDB
func (e *Engine) GetRelationships(ctx context.Context, entityID uuid.UUID) ([]*model.Relationship, error) {
	return e.relationships.SelectRelationshipsConnectedToEntity(entityID)
}

func uniqueURLs(passages []*model.Passage) []string {
	urls := []string{}
	seen := map[string]bool{}
	for _, p := range passages {
		if p.ArticleURL == "" || seen[p.ArticleURL] {
			continue
		}
		seen[p.ArticleURL] = true
		urls = append(urls, p.ArticleURL)
	}
	return urls
}

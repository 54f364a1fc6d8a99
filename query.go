package dealgraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// Ask routes a question to semantic search or the knowledge graph and
// answers it
func (g *DealGraph) Ask(ctx context.Context, question string) (*model.Answer, error) {
	if g.Agent == nil {
		return nil, helper.NewError("ask", fmt.Errorf("LLM provider not set, use SetProvider() first"))
	}
	return g.Agent.Ask(ctx, question)
}

// Report writes a report on a topic from one stored article
func (g *DealGraph) Report(ctx context.Context, url string, topic string) (*model.Report, error) {
	if g.Agent == nil {
		return nil, helper.NewError("report", fmt.Errorf("LLM provider not set, use SetProvider() first"))
	}
	return g.Agent.GenerateReport(ctx, url, topic)
}

// ArticleURLs returns the URLs of all stored articles in order
func (g *DealGraph) ArticleURLs() ([]string, error) {
	urls, err := g.Articles.SelectArticleURLs()
	if err != nil {
		return nil, helper.NewError("select article urls", err)
	}
	return urls, nil
}

// SearchEntities finds entities by name substring. An empty type matches
// every type.
func (g *DealGraph) SearchEntities(ctx context.Context, term string, entityType model.EntityType, limit int) ([]*model.Entity, error) {
	return g.Engine.SearchEntities(ctx, term, entityType, limit)
}

// Neighbors returns the entities within hops of an entity, nearest first.
// Zero hops uses the configured maximum.
func (g *DealGraph) Neighbors(ctx context.Context, entityID uuid.UUID, hops int) ([]*model.TraversalNode, error) {
	if hops <= 0 {
		hops = g.queryConfig.MaxHops
	}
	return g.Engine.EntityBFS(ctx, entityID, hops, nil)
}

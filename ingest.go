package dealgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/siherrmann/dealgraph/core/queue"
	"github.com/siherrmann/dealgraph/core/scraper"
	"github.com/siherrmann/dealgraph/database"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// ArticleSource crawls articles and hands every new one to handle
type ArticleSource interface {
	Run(ctx context.Context, processed func(url string) bool, handle scraper.ArticleHandler) (*scraper.Stats, error)
}

// GraphResult counts what one article contributed to the knowledge graph
type GraphResult struct {
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
}

// IndexArticle stores an article with its parent and searchable passages.
// Passages of an earlier run of the same URL are replaced. The content is
// only carried into the passages. Returns the number of passages inserted.
func (g *DealGraph) IndexArticle(article *model.Article) (int, error) {
	if g.Pipeline == nil || g.Pipeline.Embedder == nil {
		return 0, helper.NewError("index article", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	// Embed before writing so a failing embedder leaves no article behind
	result, err := g.Pipeline.Process(article)
	if err != nil {
		return 0, helper.NewError("process article", err)
	}

	content := article.Content
	article.Content = ""
	defer func() { article.Content = content }()

	if err := g.Articles.InsertArticle(article); err != nil {
		return 0, helper.NewError("insert article", err)
	}

	passages := result.All()
	for _, p := range passages {
		p.ArticleID = article.ID
		p.ArticleRID = article.RID
	}

	// Old and new passages swap in one transaction so a failed run never
	// leaves a partial article that counts as processed
	if err := g.Passages.ReplacePassages(article.RID, passages, database.DefaultBatchSize); err != nil {
		return 0, helper.NewError("replace passages", err)
	}

	g.log.Info("Indexed article",
		slog.String("url", article.URL),
		slog.Int("parents", len(result.Parents)),
		slog.Int("passages", len(result.Passages)),
	)

	return len(passages), nil
}

// IndexScrapedFile indexes a JSON array of {url, title, content} records.
// Records without URL or content and already processed URLs are skipped.
// Returns the number of articles indexed.
func (g *DealGraph) IndexScrapedFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, helper.NewError("read scraped file", err)
	}

	var records []model.ScrapedArticle
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, helper.NewError("decode scraped file", err)
	}

	processed, err := g.ProcessedURLs()
	if err != nil {
		return 0, err
	}

	indexed := 0
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		article := record.ToArticle()
		if article.URL == "" || article.Content == "" {
			g.log.Warn("Skipping incomplete record", slog.Int("record", i))
			continue
		}
		if processed[article.URL] {
			continue
		}

		if _, err := g.IndexArticle(article); err != nil {
			return indexed, helper.NewError(fmt.Sprintf("index record %d", i), err)
		}
		processed[article.URL] = true
		indexed++
	}

	return indexed, nil
}

// ProcessedURLs returns the URLs that already have searchable passages
func (g *DealGraph) ProcessedURLs() (map[string]bool, error) {
	processed, err := g.Articles.SelectProcessedURLs()
	if err != nil {
		return nil, helper.NewError("select processed urls", err)
	}
	return processed, nil
}

// RunIngestion crawls the source, skipping processed URLs, and indexes
// every new article. With a publisher an event is published per article;
// otherwise the graph is extracted inline when an LLM is set. Graph
// failures are logged and do not fail the article.
func (g *DealGraph) RunIngestion(ctx context.Context, source ArticleSource, publisher queue.EventPublisher) (*scraper.Stats, error) {
	processed, err := g.ProcessedURLs()
	if err != nil {
		return nil, err
	}
	g.log.Info("Starting ingestion", slog.Int("processed", len(processed)))

	stats, err := source.Run(ctx, func(url string) bool { return processed[url] }, func(ctx context.Context, article *model.Article) error {
		if _, err := g.IndexArticle(article); err != nil {
			return err
		}
		processed[article.URL] = true

		if publisher != nil {
			event := model.ArticleEvent{ArticleRID: article.RID, URL: article.URL, IndexedAt: time.Now().UTC()}
			if err := publisher.Publish(ctx, event); err != nil {
				g.log.Warn("Error publishing article event", slog.String("url", article.URL), slog.String("error", err.Error()))
			}
			return nil
		}

		if g.hasGraphExtractor() {
			if _, err := g.BuildGraph(ctx, article); err != nil {
				g.log.Warn("Error building graph", slog.String("url", article.URL), slog.String("error", err.Error()))
			}
		}
		return nil
	})
	if stats != nil {
		g.log.Info("Finished ingestion",
			slog.Int("pages", stats.Pages),
			slog.Int("scraped", stats.Scraped),
			slog.Int("skipped", stats.Skipped),
			slog.Int("failed", stats.Failed),
		)
	}
	return stats, err
}

// BuildGraph extracts the knowledge graph of a stored article and merges
// it. The text is rebuilt from the parent passages.
func (g *DealGraph) BuildGraph(ctx context.Context, article *model.Article) (*GraphResult, error) {
	if !g.hasGraphExtractor() {
		return nil, helper.NewError("build graph", fmt.Errorf("graph extractor not set, use SetProvider() first"))
	}

	text, err := g.Engine.ReconstructArticle(ctx, article.URL)
	if err != nil {
		return nil, helper.NewError("reconstruct article", err)
	}
	if text == "" {
		return nil, helper.NewError("build graph", fmt.Errorf("no stored text for %s", article.URL))
	}

	extracted, err := g.Pipeline.ExtractGraph(ctx, text)
	if err != nil {
		return nil, helper.NewError("extract graph", err)
	}

	result := &GraphResult{}
	ids := map[string]*model.Entity{}
	for _, e := range extracted.Entities {
		entity := &model.Entity{Name: e.Name, Type: e.Type}
		if err := g.Entities.MergeEntity(entity); err != nil {
			return result, helper.NewError("merge entity "+e.Name, err)
		}
		ids[entityKey(e.Name, e.Type)] = entity
		result.Entities++
	}

	for _, r := range extracted.Relationships {
		schema := model.RelationSchema[r.Type]
		sourceEntity, ok := extracted.EntityFor(r.Source, schema[0])
		if !ok {
			continue
		}
		targetEntity, ok := extracted.EntityFor(r.Target, schema[1])
		if !ok {
			continue
		}
		source := ids[entityKey(sourceEntity.Name, sourceEntity.Type)]
		target := ids[entityKey(targetEntity.Name, targetEntity.Type)]
		if source == nil || target == nil {
			continue
		}

		articleID := article.ID
		relationship := &model.Relationship{
			SourceEntityID: source.ID,
			TargetEntityID: target.ID,
			Type:           r.Type,
			ArticleID:      &articleID,
		}
		if err := g.Relationships.MergeRelationship(relationship); err != nil {
			return result, helper.NewError("merge relationship", err)
		}
		result.Relationships++
	}

	if err := g.Articles.MarkGraphExtracted(article.RID); err != nil {
		return result, helper.NewError("mark graph extracted", err)
	}

	g.log.Info("Built graph",
		slog.String("url", article.URL),
		slog.Int("entities", result.Entities),
		slog.Int("relationships", result.Relationships),
	)
	return result, nil
}

// BuildPendingGraphs builds the graph of up to limit articles that do not
// have one yet. Failing articles are logged and skipped. Returns the number
// of articles built.
func (g *DealGraph) BuildPendingGraphs(ctx context.Context, limit int) (int, error) {
	articles, err := g.Articles.SelectArticlesPendingGraph(limit)
	if err != nil {
		return 0, helper.NewError("select pending articles", err)
	}

	built := 0
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return built, err
		}
		if _, err := g.BuildGraph(ctx, article); err != nil {
			g.log.Warn("Skipping graph", slog.String("url", article.URL), slog.String("error", err.Error()))
			continue
		}
		built++
	}
	return built, nil
}

// HandleArticleEvent builds the graph of the article named by a queue event
func (g *DealGraph) HandleArticleEvent(ctx context.Context, event model.ArticleEvent) error {
	article, err := g.Articles.SelectArticle(event.ArticleRID)
	if err != nil {
		article, err = g.Articles.SelectArticleByURL(event.URL)
	}
	if err != nil {
		return helper.NewError("select article", err)
	}

	_, err = g.BuildGraph(ctx, article)
	return err
}

func (g *DealGraph) hasGraphExtractor() bool {
	return g.Pipeline != nil && g.Pipeline.GraphExtractor != nil
}

func entityKey(name string, entityType model.EntityType) string {
	return string(entityType) + ":" + model.NormalizeName(name)
}

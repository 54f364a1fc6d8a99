package dealgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/dealgraph/core/agent"
	"github.com/siherrmann/dealgraph/core/cache"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/core/pipeline"
	"github.com/siherrmann/dealgraph/core/retrieval"
	"github.com/siherrmann/dealgraph/database"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	loadSql "github.com/siherrmann/dealgraph/sql"
)

// DealGraph provides a unified interface to ingestion, the knowledge graph
// and question answering
type DealGraph struct {
	DB            *helper.Database
	Articles      *database.ArticlesDBHandler
	Passages      *database.PassagesDBHandler
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	Pipeline      *pipeline.Pipeline // Optional indexing pipeline
	Engine        *retrieval.Engine
	Agent         *agent.Agent // Set by SetProvider
	// LLM
	provider    llm.Provider
	cache       cache.Cache
	queryConfig model.QueryConfig
	// Logging
	log *slog.Logger
}

// NewDealGraph creates a new DealGraph instance with all handlers initialized
func NewDealGraph(config *helper.DatabaseConfiguration, embeddingDim int) (*DealGraph, error) {
	return NewDealGraphWithLogger(config, embeddingDim, helper.NewLogger(os.Stdout, slog.LevelInfo))
}

// NewDealGraphWithLogger is NewDealGraph with a custom logger
func NewDealGraphWithLogger(config *helper.DatabaseConfiguration, embeddingDim int, logger *slog.Logger) (*DealGraph, error) {
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	db := helper.NewDatabase("dealgraph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Articles first, passages and relationships reference them
	// force=false to not reload if functions already exist
	articles, err := database.NewArticlesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create articles handler", err)
	}

	passages, err := database.NewPassagesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create passages handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	return &DealGraph{
		DB:            db,
		Articles:      articles,
		Passages:      passages,
		Entities:      entities,
		Relationships: relationships,
		Engine:        retrieval.NewEngine(articles, passages, entities, relationships),
		queryConfig:   model.DefaultQueryConfig(),
		log:           logger,
	}, nil
}

// Close closes the database connection
func (g *DealGraph) Close() error {
	if g.DB != nil && g.DB.Instance != nil {
		return g.DB.Instance.Close()
	}
	return nil
}

// CheckHealth pings the database
func (g *DealGraph) CheckHealth(ctx context.Context) error {
	if g.DB == nil {
		return helper.NewError("check health", fmt.Errorf("database not initialized"))
	}
	return g.DB.CheckHealth(ctx)
}

// SetPipeline sets the indexing pipeline
func (g *DealGraph) SetPipeline(p *pipeline.Pipeline) {
	g.Pipeline = p
	g.wire()
}

// UseDefaultPipeline sets up the default splitters with the
// all-MiniLM-L6-v2 embedder (384 dimensions)
func (g *DealGraph) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	g.SetPipeline(pipeline.DefaultPipeline(embedder))
	return nil
}

// SetProvider sets the LLM used for graph extraction, routing and answers.
// The cache is optional.
func (g *DealGraph) SetProvider(provider llm.Provider, c cache.Cache, config model.QueryConfig) {
	g.provider = provider
	g.cache = c
	g.queryConfig = config.WithDefaults()
	if g.Pipeline != nil && provider != nil {
		g.Pipeline.SetGraphExtractor(pipeline.LLMGraphExtractor(provider, ""))
	}
	g.wire()
}

// wire gives a pipeline without graph extractor the LLM one and rebuilds
// the agent
func (g *DealGraph) wire() {
	if g.provider == nil {
		return
	}
	if g.Pipeline == nil {
		g.Pipeline = &pipeline.Pipeline{}
	}
	if g.Pipeline.GraphExtractor == nil {
		g.Pipeline.SetGraphExtractor(pipeline.LLMGraphExtractor(g.provider, ""))
	}

	g.Agent = agent.NewAgent(g.provider, g.Engine, g.Pipeline.Embedder, g.cache, g.queryConfig, g.log)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (g *DealGraph) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return g.Passages.ChangeIndexType(ctx, indexType, params)
}

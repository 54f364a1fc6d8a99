package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"github.com/siherrmann/dealgraph/core/retrieval"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// Service is the part of dealgraph exposed as MCP tools
type Service interface {
	Ask(ctx context.Context, question string) (*model.Answer, error)
	Report(ctx context.Context, url string, topic string) (*model.Report, error)
	ArticleURLs() ([]string, error)
	SearchEntities(ctx context.Context, term string, entityType model.EntityType, limit int) ([]*model.Entity, error)
	Neighbors(ctx context.Context, entityID uuid.UUID, hops int) ([]*model.TraversalNode, error)
}

// DefaultEntityLimit is used when a search does not set a limit
const DefaultEntityLimit = 20

type AskArgs struct {
	Question string `json:"question" jsonschema:"required,description=Question about M&A deals, companies or people"`
}

type ReportArgs struct {
	URL   string `json:"url" jsonschema:"required,description=URL of an indexed article"`
	Topic string `json:"topic" jsonschema:"required,description=Topic the report should focus on"`
}

type ListArticlesArgs struct{}

type SearchEntitiesArgs struct {
	Query      string `json:"query" jsonschema:"required,description=Part of the entity name"`
	EntityType string `json:"entity_type,omitempty" jsonschema:"enum=Company;Person;Industry;FinancialValue,description=Filter by entity type"`
	Limit      int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results (default 20)"`
}

type NeighborsArgs struct {
	EntityID string `json:"entity_id" jsonschema:"required,description=Entity ID as returned by search_entities"`
	Hops     int    `json:"hops,omitempty" jsonschema:"description=Maximum traversal depth (default from config)"`
}

// Tools implements the MCP tool handlers over a Service
type Tools struct {
	ctx     context.Context
	service Service
	log     *slog.Logger
}

// NewTools creates the tool handlers. Tool calls run with ctx.
func NewTools(ctx context.Context, service Service, logger *slog.Logger) *Tools {
	return &Tools{ctx: ctx, service: service, log: logger}
}

// Register adds every tool to server
func (t *Tools) Register(server *mcp.Server) error {
	tools := []struct {
		name        string
		description string
		handler     interface{}
	}{
		{"ask", "Answer a question from the indexed M&A articles or the knowledge graph", t.Ask},
		{"report", "Write a research report on one indexed article for a topic", t.Report},
		{"list_articles", "List the URLs of all indexed articles", t.ListArticles},
		{"search_entities", "Find companies, people, industries or deal values by name", t.SearchEntities},
		{"entity_neighbors", "Show the entities connected to an entity in the knowledge graph", t.Neighbors},
	}

	for _, tool := range tools {
		if err := server.RegisterTool(tool.name, tool.description, tool.handler); err != nil {
			return helper.NewError("register tool "+tool.name, err)
		}
	}
	return nil
}

func (t *Tools) Ask(args AskArgs) (*mcp.ToolResponse, error) {
	question := strings.TrimSpace(args.Question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	answer, err := t.service.Ask(t.ctx, question)
	if err != nil {
		return nil, err
	}
	t.log.Debug("Answered MCP question", slog.String("route", string(answer.Route)))

	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, s := range answer.Sources {
			b.WriteString("- " + s + "\n")
		}
	}
	return mcp.NewToolResponse(mcp.NewTextContent(b.String())), nil
}

func (t *Tools) Report(args ReportArgs) (*mcp.ToolResponse, error) {
	if strings.TrimSpace(args.URL) == "" || strings.TrimSpace(args.Topic) == "" {
		return nil, fmt.Errorf("url and topic are required")
	}

	report, err := t.service.Report(t.ctx, strings.TrimSpace(args.URL), strings.TrimSpace(args.Topic))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(report.Text)), nil
}

func (t *Tools) ListArticles(args ListArticlesArgs) (*mcp.ToolResponse, error) {
	urls, err := t.service.ArticleURLs()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return mcp.NewToolResponse(mcp.NewTextContent("No articles indexed yet.")), nil
	}
	return mcp.NewToolResponse(mcp.NewTextContent(strings.Join(urls, "\n"))), nil
}

func (t *Tools) SearchEntities(args SearchEntitiesArgs) (*mcp.ToolResponse, error) {
	entityType := model.EntityType(args.EntityType)
	if entityType != "" && !entityType.IsValid() {
		return nil, fmt.Errorf("unknown entity type: %s", args.EntityType)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = DefaultEntityLimit
	}

	entities, err := t.service.SearchEntities(t.ctx, args.Query, entityType, limit)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return mcp.NewToolResponse(mcp.NewTextContent("No entities found.")), nil
	}

	var b strings.Builder
	for _, e := range entities {
		fmt.Fprintf(&b, "%s %s (%s)\n", e.ID, e.Name, e.Type)
	}
	return mcp.NewToolResponse(mcp.NewTextContent(b.String())), nil
}

func (t *Tools) Neighbors(args NeighborsArgs) (*mcp.ToolResponse, error) {
	id, err := uuid.Parse(args.EntityID)
	if err != nil {
		return nil, fmt.Errorf("invalid entity id: %w", err)
	}

	nodes, err := t.service.Neighbors(t.ctx, id, args.Hops)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(retrieval.FormatTraversal(nodes))), nil
}

// Serve runs the MCP server over stdin/stdout until ctx is cancelled.
// Nothing else may write to stdout meanwhile.
func Serve(ctx context.Context, service Service, logger *slog.Logger) error {
	server := mcp.NewServer(stdio.NewStdioServerTransport())

	if err := NewTools(ctx, service, logger).Register(server); err != nil {
		return err
	}

	if err := server.Serve(); err != nil {
		return helper.NewError("serve mcp", err)
	}
	logger.Info("MCP server ready")

	<-ctx.Done()
	return nil
}

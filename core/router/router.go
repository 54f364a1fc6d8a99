package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/dealgraph/core/cache"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/model"
)

// DefaultTTL is how long a routing decision is cached
const DefaultTTL = 24 * time.Hour

const routePrompt = `You are a query router. Your task is to classify the user's question into one of two categories: "semantic" or "graph".

- Use "semantic" for broad, conceptual, or analytical questions (e.g., "what might happen if...", "what is the market sentiment...", "summarize trends...").
- Use "graph" for specific, factual questions that involve relationships between entities like companies, people, or industries (e.g., "who acquired company X?", "list all CEOs in the telecom industry", "which companies were involved in deals over $1B?").

Respond with ONLY the word "semantic" or "graph".

User question: "%s"`

// Router classifies questions as semantic or graph questions
type Router struct {
	provider llm.Provider
	cache    cache.Cache
	ttl      time.Duration
	log      *slog.Logger
}

// NewRouter creates a router. The cache is optional.
func NewRouter(provider llm.Provider, c cache.Cache, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		provider: provider,
		cache:    c,
		ttl:      DefaultTTL,
		log:      logger,
	}
}

// Route asks the LLM for the retrieval path of a question. Any failure
// falls back to semantic search.
func (r *Router) Route(ctx context.Context, question string) model.Route {
	key := cache.Key("route", question)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return model.ParseRoute(string(cached))
		}
	}

	if r.provider == nil {
		r.log.Warn("No LLM provider for routing, defaulting to semantic search")
		return model.RouteSemantic
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Prompt: fmt.Sprintf(routePrompt, question),
	})
	if err != nil {
		r.log.Warn("Error in routing, defaulting to semantic search", slog.String("error", err.Error()))
		return model.RouteSemantic
	}

	route := model.ParseRoute(resp.Text)
	r.log.Debug("Route determined", slog.String("question", question), slog.String("route", string(route)))

	if r.cache != nil {
		if err := r.cache.Set(key, []byte(route), r.ttl); err != nil {
			r.log.Warn("Error caching route", slog.String("error", err.Error()))
		}
	}
	return route
}

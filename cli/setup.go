package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siherrmann/dealgraph"
	"github.com/siherrmann/dealgraph/core/cache"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/helper"
)

// logger writes to stderr so command output stays pipeable
func logger() *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return helper.NewLogger(os.Stderr, level)
}

// signalContext is cancelled on interrupt or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openDealGraph connects to the database. The embedding pipeline is only
// loaded when needed as it downloads the model on first use.
func openDealGraph(withPipeline bool) (*dealgraph.DealGraph, error) {
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	g, err := dealgraph.NewDealGraphWithLogger(&cfg.Database, cfg.EmbeddingDim, logger())
	if err != nil {
		return nil, err
	}

	if withPipeline {
		if err := g.UseDefaultPipeline(); err != nil {
			_ = g.Close()
			return nil, err
		}
	}
	return g, nil
}

// useProvider connects the configured LLM to g
func useProvider(g *dealgraph.DealGraph) error {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("no LLM provider configured (set llm.provider or LLM_PROVIDER)")
	}

	g.SetProvider(provider, newCache(), cfg.Query)
	return nil
}

// newCache returns the answer cache: memory only, or memory in front of
// redis when an address is configured
func newCache() cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}

	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	memory := cache.NewMemoryCache(ttl)
	if cfg.Cache.RedisAddr == "" {
		return memory
	}

	shared, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, ttl)
	if err != nil {
		logger().Warn("Redis unavailable, using memory cache only", slog.String("error", err.Error()))
		return memory
	}
	return cache.NewLayeredCache(memory, shared)
}

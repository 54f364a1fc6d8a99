package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/dealgraph/core/cache"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/core/queue"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the connections to the configured services",
	Long: `Check that PostgreSQL is reachable and report its version, then check the
LLM provider, Redis and RabbitMQ when they are configured.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false
	report := func(name string, detail string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("%s %s: %v\n", ErrorStyle.Render("✗"), name, err)
			return
		}
		fmt.Printf("%s %s %s\n", SuccessStyle.Render("✓"), name, detail)
	}

	version, err := helper.CheckConnection(ctx, &cfg.Database)
	report("PostgreSQL", version, err)

	provider, err := llm.NewProvider(cfg.LLM)
	switch {
	case err != nil:
		report("LLM", "", err)
	case provider == nil:
		fmt.Printf("%s LLM not configured\n", WarningStyle.Render("-"))
	case !provider.IsAvailable(ctx):
		report("LLM", "", fmt.Errorf("%s is not available", provider.Name()))
	default:
		report("LLM", fmt.Sprintf("%s (%s)", provider.Name(), cfg.LLM.Model), nil)
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisAddr != "" {
		redis, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, time.Minute)
		if err == nil {
			_ = redis.Close()
		}
		report("Redis", cfg.Cache.RedisAddr, err)
	}

	if cfg.Queue.URL != "" {
		publisher, err := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, logger())
		if err == nil {
			_ = publisher.Close()
		}
		report("RabbitMQ", cfg.Queue.Name, err)
	}

	if failed {
		return fmt.Errorf("some checks failed")
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/dealgraph"
	"github.com/siherrmann/dealgraph/core/queue"
	"github.com/siherrmann/dealgraph/core/scraper"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ingestEvery   time.Duration
	ingestNoGraph bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Crawl the publications site and index new articles",
	Long: `Crawl the configured listing pages, scrape every article that is not yet
indexed and store its passages with embeddings.

With a RabbitMQ URL configured, graph extraction is handed to "dealgraph graph
worker" through the queue. Otherwise the graph is built inline when an LLM
provider is available.

Examples:
  dealgraph ingest
  dealgraph ingest --pages 10
  dealgraph ingest --every 6h`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <scraped.json>",
	Short: "Index articles from a scraped JSON file",
	Long: `Index a JSON array of {"url", "title", "content"} records, as written by
"dealgraph export --json". Records with a missing field or an already indexed
URL are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	ingestCmd.Flags().Int("pages", 0, "number of listing pages to crawl")
	ingestCmd.Flags().DurationVar(&ingestEvery, "every", 0, "repeat the crawl at this interval until interrupted")
	ingestCmd.Flags().BoolVar(&ingestNoGraph, "no-graph", false, "skip inline graph extraction")
	_ = viper.BindPFlag("scraper.pages", ingestCmd.Flags().Lookup("pages"))

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	log := logger()

	g, err := openDealGraph(true)
	if err != nil {
		return err
	}
	defer g.Close()

	s, err := scraper.NewScraper(cfg.Scraper, log)
	if err != nil {
		return err
	}

	var publisher queue.EventPublisher
	if cfg.Queue.URL != "" {
		p, err := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, log)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	} else if !ingestNoGraph {
		if err := useProvider(g); err != nil {
			log.Warn("Graph extraction disabled", slog.String("error", err.Error()))
		}
	}

	if ingestEvery <= 0 {
		return ingestOnce(ctx, g, s, publisher)
	}

	ticker := time.NewTicker(ingestEvery)
	defer ticker.Stop()
	for {
		if err := ingestOnce(ctx, g, s, publisher); err != nil {
			log.Error("Ingestion failed", slog.String("error", err.Error()))
		}

		log.Info("Waiting for next crawl", slog.Duration("every", ingestEvery))
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func ingestOnce(ctx context.Context, g *dealgraph.DealGraph, s *scraper.Scraper, publisher queue.EventPublisher) error {
	stats, err := g.RunIngestion(ctx, s, publisher)
	if err != nil {
		return err
	}

	fmt.Printf("Crawled %d pages, found %d links: %d scraped, %d skipped, %d failed\n",
		stats.Pages, stats.Links, stats.Scraped, stats.Skipped, stats.Failed)
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	g, err := openDealGraph(true)
	if err != nil {
		return err
	}
	defer g.Close()

	n, err := g.IndexScrapedFile(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d articles from %s\n", n, args[0])
	return nil
}

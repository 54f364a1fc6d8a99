package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/core/queue"
	"github.com/siherrmann/dealgraph/core/retrieval"
	"github.com/siherrmann/dealgraph/model"
	"github.com/spf13/cobra"
)

var (
	graphBuildLimit  int
	graphSearchLimit int
	graphHops        int
	graphEntityType  string
)

// graphCmd groups the knowledge graph commands
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and explore the knowledge graph",
}

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Extract the graph for indexed articles that have none yet",
	Args:  cobra.NoArgs,
	RunE:  runGraphBuild,
}

var graphWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume article events from RabbitMQ and extract their graph",
	Args:  cobra.NoArgs,
	RunE:  runGraphWorker,
}

var graphSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find entities by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphSearch,
}

var graphNeighborsCmd = &cobra.Command{
	Use:   "neighbors <entity-id>",
	Short: "Show the entities reachable from an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphNeighbors,
}

func init() {
	graphBuildCmd.Flags().IntVar(&graphBuildLimit, "limit", 50, "maximum number of articles to process")
	graphSearchCmd.Flags().IntVar(&graphSearchLimit, "limit", 20, "maximum number of entities")
	graphSearchCmd.Flags().StringVar(&graphEntityType, "type", "", "entity type (Company, Person, Industry, FinancialValue)")
	graphNeighborsCmd.Flags().IntVar(&graphHops, "hops", 0, "maximum traversal depth (default from query.max_hops)")

	graphCmd.AddCommand(graphBuildCmd)
	graphCmd.AddCommand(graphWorkerCmd)
	graphCmd.AddCommand(graphSearchCmd)
	graphCmd.AddCommand(graphNeighborsCmd)
	rootCmd.AddCommand(graphCmd)
}

func runGraphBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := useProvider(g); err != nil {
		return err
	}

	n, err := g.BuildPendingGraphs(ctx, graphBuildLimit)
	if err != nil {
		return err
	}

	fmt.Printf("Extracted the graph of %d articles\n", n)
	return nil
}

func runGraphWorker(cmd *cobra.Command, args []string) error {
	if cfg.Queue.URL == "" {
		return fmt.Errorf("no queue configured (set queue.url or RABBITMQ_URL)")
	}

	ctx, stop := signalContext()
	defer stop()

	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := useProvider(g); err != nil {
		return err
	}

	consumer, err := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.Name, logger())
	if err != nil {
		return err
	}
	defer consumer.Close()

	return consumer.Run(ctx, g.HandleArticleEvent)
}

func runGraphSearch(cmd *cobra.Command, args []string) error {
	entityType := model.EntityType(graphEntityType)
	if entityType != "" && !entityType.IsValid() {
		return fmt.Errorf("unknown entity type: %s", graphEntityType)
	}

	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	entities, err := g.SearchEntities(cmd.Context(), args[0], entityType, graphSearchLimit)
	if err != nil {
		return err
	}

	if len(entities) == 0 {
		fmt.Println("No entities found")
		return nil
	}
	for _, e := range entities {
		fmt.Printf("%s  %s\n", DimStyle.Render(e.ID.String()), formatEntity(e))
	}
	return nil
}

func runGraphNeighbors(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid entity id: %w", err)
	}

	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	nodes, err := g.Neighbors(cmd.Context(), id, graphHops)
	if err != nil {
		return err
	}

	fmt.Print(retrieval.FormatTraversal(nodes))
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	askJSON     bool
	reportTopic string
	reportOut   string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed articles or the knowledge graph",
	Long: `Ask a question. The LLM router decides whether semantic search over the
articles or a query against the knowledge graph answers it best.

Examples:
  dealgraph ask "What drives consolidation in European fintech?"
  dealgraph ask "Which companies did Quorvex acquire?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <article-url>",
	Short: "Write a research report on one article",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full answer as JSON")
	reportCmd.Flags().StringVarP(&reportTopic, "topic", "t", "", "topic of the report")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to a file")
	_ = reportCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(reportCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	g, err := openDealGraph(true)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := useProvider(g); err != nil {
		return err
	}

	answer, err := g.Ask(ctx, joinArgs(args))
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println(HeaderStyle.Render("Sources"))
		for _, s := range answer.Sources {
			fmt.Printf("  - %s\n", URLStyle.Render(s))
		}
	}
	if cfg.Verbose {
		fmt.Fprintln(os.Stderr, DimStyle.Render(fmt.Sprintf("\nroute: %s, cached: %t", answer.Route, answer.Cached)))
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
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

	report, err := g.Report(ctx, args[0], reportTopic)
	if err != nil {
		return err
	}

	if reportOut == "" {
		fmt.Println(report.Text)
		return nil
	}

	if err := os.WriteFile(reportOut, []byte(report.Text+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report written to %s\n", reportOut)
	return nil
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/siherrmann/dealgraph"
	"github.com/spf13/cobra"
)

var (
	exportJSON string
	exportCSV  string
)

// articlesCmd represents the articles command
var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List the URLs of all indexed articles",
	Args:  cobra.NoArgs,
	RunE:  runArticles,
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the indexed articles as JSON or CSV",
	Long: `Export every indexed article with its reconstructed text.

Examples:
  dealgraph export --json scraped.json
  dealgraph export --csv scraped.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportJSON, "json", "", "write a JSON file")
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "write a CSV file")
	exportCmd.MarkFlagsOneRequired("json", "csv")
	exportCmd.MarkFlagsMutuallyExclusive("json", "csv")

	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(exportCmd)
}

func runArticles(cmd *cobra.Command, args []string) error {
	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	urls, err := g.ArticleURLs()
	if err != nil {
		return err
	}

	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	path, format := exportJSON, dealgraph.ExportJSON
	if exportCSV != "" {
		path, format = exportCSV, dealgraph.ExportCSV
	}

	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	n, err := g.ExportArticles(f, format)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d articles to %s\n", n, path)
	return nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

package cli

import (
	"fmt"
	"os"

	"github.com/siherrmann/dealgraph/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve dealgraph as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout. It exposes the ask,
report, list_articles, search_entities and entity_neighbors tools to an MCP
client. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	stat, err := os.Stdin.Stat()
	if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
		return fmt.Errorf("mcp requires stdin/stdout to be connected to an MCP client, not a terminal")
	}

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

	return mcp.Serve(ctx, g, logger())
}

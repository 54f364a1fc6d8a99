package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	indexM              int
	indexEfConstruction int
	indexLists          int
)

// vectorIndexCmd represents the vector-index command
var vectorIndexCmd = &cobra.Command{
	Use:       "vector-index <hnsw|ivfflat>",
	Short:     "Rebuild the passage vector index",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"hnsw", "ivfflat"},
	RunE:      runVectorIndex,
}

func init() {
	vectorIndexCmd.Flags().IntVar(&indexM, "m", 16, "HNSW max connections per layer")
	vectorIndexCmd.Flags().IntVar(&indexEfConstruction, "ef-construction", 64, "HNSW candidate list size")
	vectorIndexCmd.Flags().IntVar(&indexLists, "lists", 100, "IVFFlat number of lists")

	rootCmd.AddCommand(vectorIndexCmd)
}

func runVectorIndex(cmd *cobra.Command, args []string) error {
	g, err := openDealGraph(false)
	if err != nil {
		return err
	}
	defer g.Close()

	params := map[string]interface{}{
		"m":               indexM,
		"ef_construction": indexEfConstruction,
		"lists":           indexLists,
	}
	if err := g.ChangeIndexType(cmd.Context(), args[0], params); err != nil {
		return err
	}

	fmt.Printf("Vector index rebuilt as %s\n", args[0])
	return nil
}

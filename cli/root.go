package cli

import (
	"fmt"

	"github.com/siherrmann/dealgraph/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the released version of dealgraph
const Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// cfg is loaded before every command runs
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dealgraph",
	Short: "dealgraph - M&A research assistant over articles and a knowledge graph",
	Long: `dealgraph crawls M&A publications, indexes them for semantic search and
extracts a knowledge graph of companies, people, industries and deal values.

Questions are routed by an LLM either to semantic search over the articles
or to a query against the knowledge graph. Reports summarize one article on
a given topic.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dealgraph %s\n", Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dealgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("llm-provider", "", "LLM provider (openai, openrouter, ollama)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads flags, environment and config file into cfg
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Command total-recall runs the local semantic-memory MCP server: it reads
// past CLI and IDE conversation history, keeps an on-disk embedding index
// fresh, and answers scoped semantic-search tool calls over stdio.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "total-recall",
	Short:   "Local semantic memory for AI coding assistants",
	Version: version,
	Long: `total-recall indexes past CLI and IDE conversation history into a local
embedding cache and exposes scoped semantic search over MCP.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/total-recall/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(statusCmd)
}

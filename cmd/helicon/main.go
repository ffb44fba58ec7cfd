package main

import (
	"fmt"
	"os"

	"github.com/helicon-hq/helicon/internal/cli"
	"github.com/helicon-hq/helicon/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "helicon",
		Short: "Helicon CLI - Knowledge and context retrieval for AI agents",
		Long: `Helicon CLI provides commands to manage knowledge sources, memories, and context bundles.

Environment variables:
  HELICON_API_URL       API base URL (default: http://localhost:8080)
  HELICON_WORKSPACE_ID  Workspace to operate in
  HELICON_SPACE_ID      Space to operate in`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("workspace", "", "Workspace ID (overrides env and config)")
	rootCmd.PersistentFlags().String("space", "", "Space ID (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.SourcesCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.MemoryCmd())
	rootCmd.AddCommand(client.ContextCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

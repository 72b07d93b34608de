// papersearch runs ranked literature searches from the command line.
//
// Usage:
//
//	papersearch search --theme=<text> [--key1=<text>] [--key2=<text>] [--from=<year>] [--to=<year>] [--top=<n>]
//	papersearch rank -f <records.json> [--field=journal] [--top=<n>] [--full] [--ascending]
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-ranking-service/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// loadConfig is replaced in tests.
var loadConfig = func() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}

var rootCmd = &cobra.Command{
	Use:   "papersearch",
	Short: "Search PubMed and rank papers by journal impact factor",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-ranking-service/internal/app"
	"github.com/helixir/paper-ranking-service/internal/events"
	"github.com/helixir/paper-ranking-service/internal/search"
)

var searchFlags struct {
	theme    string
	key1     string
	key2     string
	from     int
	to       int
	top      int
	jsonOut  bool
	logLevel string
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search PubMed and print the top papers by impact factor",
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchFlags.theme, "theme", "", "Title phrase")
	f.StringVar(&searchFlags.key1, "key1", "", "Title/abstract phrase")
	f.StringVar(&searchFlags.key2, "key2", "", "Journal phrase")
	f.IntVar(&searchFlags.from, "from", 0, "First publication year (inclusive)")
	f.IntVar(&searchFlags.to, "to", 0, "Last publication year (inclusive)")
	f.IntVar(&searchFlags.top, "top", 0, "Number of papers to print (default from config)")
	f.BoolVar(&searchFlags.jsonOut, "json", false, "Print JSON instead of a table")
	f.StringVar(&searchFlags.logLevel, "log-level", "warn", "Log level")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Level = searchFlags.logLevel
	cfg.Logging.Output = "stderr"
	logger := app.NewLogger(cfg, "papersearch")

	svc, err := app.NewSearchService(cmd.Context(), cfg, events.NoopPublisher{}, logger, nil)
	if err != nil {
		return err
	}

	resp, err := svc.Search(cmd.Context(), search.Query{
		Theme:    searchFlags.theme,
		Key1:     searchFlags.key1,
		Key2:     searchFlags.key2,
		YearFrom: searchFlags.from,
		YearTo:   searchFlags.to,
		TopN:     searchFlags.top,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}
	if len(resp.Papers) == 0 {
		fmt.Fprintln(out, search.NoResultsMessage)
		return nil
	}

	fmt.Fprintf(out, "Query: %s\n", resp.Query)
	fmt.Fprintf(out, "Candidates: %d\n\n", resp.Candidates)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tIF\tYEAR\tJOURNAL\tTITLE")
	for _, p := range resp.Papers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID+1, p.ImpactFactor, p.PubDate, p.Journal, p.Title)
	}
	return tw.Flush()
}

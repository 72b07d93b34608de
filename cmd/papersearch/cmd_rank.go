package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-ranking-service/internal/app"
	"github.com/helixir/paper-ranking-service/internal/config"
	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/ranking"
)

var rankFlags struct {
	file        string
	field       string
	metricField string
	top         int
	full        bool
	ascending   bool
	logLevel    string
}

// newLookup is replaced in tests.
var newLookup = func(ctx context.Context, cfg *config.Config) (ranking.Lookup, error) {
	return app.NewLookup(ctx, cfg, nil)
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a JSON array of records by a metric looked up per group",
	Long: "Reads a JSON array of objects, asks the oracle once per distinct value of --field\n" +
		"and prints the records sorted by the resulting metric. Records whose metric\n" +
		"cannot be determined keep a null metric and are listed last.",
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.StringVarP(&rankFlags.file, "file", "f", "-", "Records file (- for stdin)")
	f.StringVar(&rankFlags.field, "field", domain.FieldJournal, "Grouping field")
	f.StringVar(&rankFlags.metricField, "metric-field", ranking.DefaultMetricField, "Field the metric is written to")
	f.IntVar(&rankFlags.top, "top", ranking.DefaultTopK, "Number of records to print (0 for all)")
	f.BoolVar(&rankFlags.full, "full", false, "Print every record")
	f.BoolVar(&rankFlags.ascending, "ascending", false, "Sort ascending (with --full)")
	f.StringVar(&rankFlags.logLevel, "log-level", "warn", "Log level")
}

func runRank(cmd *cobra.Command, _ []string) error {
	records, err := readRecords(cmd.InOrStdin(), rankFlags.file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Level = rankFlags.logLevel
	cfg.Logging.Output = "stderr"
	logger := app.NewLogger(cfg, "papersearch")

	lookup, err := newLookup(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ranker, err := ranking.NewMetricRanker(records, rankFlags.field, lookup,
		ranking.WithMetricField(rankFlags.metricField),
		ranking.WithConcurrency(cfg.Oracle.Concurrency),
		ranking.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var ranked []domain.Record
	if rankFlags.full {
		ranked, err = ranker.FullRanking(cmd.Context(), rankFlags.ascending)
	} else {
		ranked, err = ranker.TopRanked(cmd.Context(), rankFlags.top)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(ranked)
}

// readRecords decodes a JSON array of objects, keeping each object's field
// order.
func readRecords(stdin io.Reader, path string) ([]domain.Record, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open records: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw []*domain.MapRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	records := make([]domain.Record, 0, len(raw))
	for i, rec := range raw {
		if rec == nil {
			return nil, fmt.Errorf("record %d is null", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

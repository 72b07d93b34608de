// Package papersources provides the clients that supply candidate papers
// for ranking, along with the rate-limited HTTP client they share.
//
// Example usage:
//
//	source := pubmed.New(pubmed.Config{Enabled: true})
//	result, err := source.Search(ctx, papersources.SearchParams{
//		Query:    pubmed.BuildQuery("sepsis", "lactate", ""),
//		YearFrom: 2020,
//		YearTo:   2024,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-ranking-service/internal/domain"
)

// SearchParams defines a literature search.
type SearchParams struct {
	// Query is the source-specific query string (required).
	Query string

	// YearFrom and YearTo bound the publication year, inclusive. Zero means
	// unbounded. When either bound is set, papers without a parseable year
	// are dropped.
	YearFrom int
	YearTo   int

	// MaxResults limits the number of identifiers requested from the
	// source. Zero uses the source default.
	MaxResults int
}

// HasYearFilter reports whether a year bound is set.
func (p SearchParams) HasYearFilter() bool {
	return p.YearFrom > 0 || p.YearTo > 0
}

// YearInRange reports whether year satisfies the configured bounds.
func (p SearchParams) YearInRange(year int) bool {
	if !p.HasYearFilter() {
		return true
	}
	if year <= 0 {
		return false
	}
	if p.YearFrom > 0 && year < p.YearFrom {
		return false
	}
	if p.YearTo > 0 && year > p.YearTo {
		return false
	}
	return true
}

// SearchResult contains the papers returned by a search.
type SearchResult struct {
	// Papers is the filtered result set in source order. Never nil.
	Papers []*domain.Paper

	// TotalResults is the number of matches the source reported before
	// the MaxResults cut and the year filter.
	TotalResults int

	// Skipped counts papers dropped by the year filter.
	Skipped int

	// Source names the source that produced the result.
	Source string

	SearchDuration time.Duration
}

// PaperSource is a literature database client.
type PaperSource interface {
	// Search runs the query and returns matching papers. A query that
	// matches nothing returns an empty result, not an error.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID fetches a single paper. Returns a domain.NotFoundError when
	// the identifier does not exist.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// Name returns a human-readable source name for logs and metrics.
	Name() string

	// IsEnabled reports whether the source is configured for use.
	IsEnabled() bool
}

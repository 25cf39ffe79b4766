// Package sources provides interfaces and types for academic paper source clients.
//
// This package defines the foundational abstractions that all paper source
// implementations must follow. Each academic database (Semantic Scholar, arXiv)
// implements the Source interface, allowing the curation service to scout
// multiple sources with a unified API.
//
// Example usage:
//
//	source := semanticscholar.New(cfg, httpClient)
//	params := sources.SearchParams{
//		Query:      "quantum computing",
//		MaxResults: 10,
//	}
//	result, err := source.Search(ctx, params)
package sources

import (
	"context"
	"time"

	"github.com/skimlabs/curation-service/internal/domain"
)

// SortOrder controls how a source ranks search results.
type SortOrder string

const (
	// SortByRecency orders results newest first.
	SortByRecency SortOrder = "recency"

	// SortByCitations orders results by citation count, highest first.
	SortByCitations SortOrder = "citations"

	// SortByRelevance orders results by the source's relevance ranking.
	SortByRelevance SortOrder = "relevance"
)

// SearchParams defines the parameters for searching academic papers.
// All fields except Query are optional.
type SearchParams struct {
	// Query is the search query string (required).
	Query string

	// YearFrom filters papers published in or after this year.
	// A value of 0 applies no lower bound.
	YearFrom int

	// YearTo filters papers published in or before this year.
	// A value of 0 applies no upper bound.
	YearTo int

	// MaxResults limits the number of papers returned in a single request.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Sort controls result ordering. Sources that do not support the
	// requested order fall back to their default ranking.
	Sort SortOrder
}

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Papers contains the papers returned by the search.
	// May be empty if no papers match the search criteria.
	Papers []*domain.Paper

	// TotalResults is the total number of papers matching the query,
	// regardless of pagination limits. May be an estimate.
	TotalResults int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// Source defines the interface that all paper source clients must implement.
type Source interface {
	// Search queries the paper source for papers matching the given
	// parameters. Returns a SearchResult containing the matching papers.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Transform source-specific responses to domain.Paper
	//   - Include appropriate error wrapping with source context
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this paper source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this paper source.
	// Used for logging, metrics, and display purposes.
	Name() string

	// IsEnabled returns whether this paper source is currently enabled
	// and available for searches.
	IsEnabled() bool
}

package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/observability"
	"github.com/skimlabs/curation-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "title,abstract,url,publicationDate,venue,authors,paperId,citationCount,openAccessPdf,externalIds"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxResults is the maximum number of results to return per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool

	// Metrics records per-request observations. May be nil.
	Metrics *observability.Metrics
}

// Client implements the sources.Source interface for Semantic Scholar.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
}

// Compile-time check that Client implements sources.Source.
var _ sources.Source = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = sources.NewHTTPClient("semantic_scholar", sources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			Metrics:      cfg.Metrics,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Semantic Scholar for papers matching the given parameters.
// Records without a redistributable abstract are returned as-is; filtering
// happens downstream.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := c.convertToPapers(searchResp.Data)

	return &sources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResp.Total,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("fields", paperFields)

	limit := params.MaxResults
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}
	q.Set("limit", strconv.Itoa(limit))

	// Semantic Scholar uses a "YYYY-YYYY" year window.
	if params.YearFrom > 0 && params.YearTo > 0 {
		q.Set("year", fmt.Sprintf("%d-%d", params.YearFrom, params.YearTo))
	} else if params.YearFrom > 0 {
		q.Set("year", fmt.Sprintf("%d-", params.YearFrom))
	} else if params.YearTo > 0 {
		q.Set("year", fmt.Sprintf("-%d", params.YearTo))
	}

	switch params.Sort {
	case sources.SortByRecency:
		q.Set("sort", "publicationDate:desc")
	case sources.SortByCitations:
		q.Set("sort", "citationCount:desc")
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// convertToPapers converts a slice of API paper results to domain papers.
func (c *Client) convertToPapers(results []PaperResult) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(results))
	for _, result := range results {
		papers = append(papers, c.convertToPaper(result))
	}
	return papers
}

// convertToPaper converts a single API paper result to a domain paper.
func (c *Client) convertToPaper(result PaperResult) *domain.Paper {
	paper := &domain.Paper{
		Title:           result.Title,
		Abstract:        result.Abstract,
		PublicationDate: result.PublicationDate,
		Venue:           result.Venue,
		PaperID:         result.PaperID,
		PageURL:         result.URL,
		CitationCount:   result.CitationCount,
		Authors:         convertAuthors(result.Authors),
	}

	if result.OpenAccessPDF != nil {
		paper.OpenAccessPDF = result.OpenAccessPDF.URL
	}
	if result.ExternalIDs != nil {
		paper.DOI = result.ExternalIDs.DOI
	}

	return paper
}

// convertAuthors converts API authors to domain authors.
func convertAuthors(apiAuthors []Author) []domain.Author {
	authors := make([]domain.Author, 0, len(apiAuthors))
	for _, a := range apiAuthors {
		authors = append(authors, domain.Author{
			Name: a.Name,
		})
	}
	return authors
}

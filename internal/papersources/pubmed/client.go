package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/observability"
	"github.com/helixir/paper-ranking-service/internal/papersources"
)

const (
	// DefaultBaseURL is the NCBI E-utilities endpoint.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the NCBI limit without an API key. With a key it
	// may be raised to 10.
	DefaultRateLimit = 3.0

	DefaultBurstSize = 3

	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the number of PMIDs requested per search.
	DefaultMaxResults = 20

	// MaxResultsLimit is the API's retmax ceiling.
	MaxResultsLimit = 10000

	maxResponseBytes = 10 << 20

	sourceName = "PubMed"
	metricName = "pubmed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the optional NCBI API key, sent as the api_key parameter.
	APIKey string

	Timeout   time.Duration
	RateLimit float64
	BurstSize int

	// MaxResults is the default retmax when SearchParams.MaxResults is zero.
	MaxResults int

	// Enabled gates Search and GetByID.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the rate-limited HTTP client.
func WithHTTPClient(hc *papersources.HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger.With().Str("component", "pubmed").Logger() }
}

// WithMetrics records request counts and latency per endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client implements papersources.PaperSource for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a PubMed client.
func New(cfg Config, opts ...Option) *Client {
	cfg.applyDefaults()

	c := &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Service:   sourceName,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		}),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search resolves params.Query to PMIDs, fetches the articles and applies
// the year filter. Unknown phrases and empty result sets yield an empty
// result.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("pubmed source is disabled: %w", domain.ErrNotConfigured)
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}

	startTime := time.Now()
	result := &papersources.SearchResult{
		Papers: []*domain.Paper{},
		Source: sourceName,
	}

	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}
	result.TotalResults = searchResult.Count

	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		c.logger.Info().Strs("phrases", searchResult.ErrorList.PhraseNotFound).Msg("phrases not found")
		result.SearchDuration = time.Since(startTime)
		return result, nil
	}
	if len(searchResult.IDList.IDs) == 0 {
		c.logger.Info().Str("query", params.Query).Msg("no PMIDs matched")
		result.SearchDuration = time.Since(startTime)
		return result, nil
	}

	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	for _, article := range articles.Articles {
		paper := articleToPaper(article)
		if !params.YearInRange(paper.Year) {
			result.Skipped++
			c.logger.Debug().
				Str("pmid", paper.PMID).
				Int("year", paper.Year).
				Msg("paper outside year range, skipped")
			continue
		}
		result.Papers = append(result.Papers, paper)
	}

	result.SearchDuration = time.Since(startTime)
	c.logger.Info().
		Int("pmids", len(searchResult.IDList.IDs)).
		Int("papers", len(result.Papers)).
		Int("skipped", result.Skipped).
		Dur("duration", result.SearchDuration).
		Msg("pubmed search completed")
	return result, nil
}

// GetByID fetches one article by PMID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("pubmed source is disabled: %w", domain.ErrNotConfigured)
	}

	articles, err := c.efetch(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}
	if len(articles.Articles) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return articleToPaper(articles.Articles[0]), nil
}

// Name returns "PubMed".
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) esearch(ctx context.Context, params papersources.SearchParams) (*ESearchResult, error) {
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", params.Query)
	q.Set("retmode", "xml")
	q.Set("retmax", strconv.Itoa(maxResults))

	var result ESearchResult
	if err := c.get(ctx, "esearch", q, &result); err != nil {
		return nil, err
	}
	if result.ERROR != "" {
		return nil, domain.NewValidationError("query", result.ERROR)
	}
	return &result, nil
}

func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")

	var result PubmedArticleSet
	if err := c.get(ctx, "efetch", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// get issues a GET to {BaseURL}/{endpoint}.fcgi and decodes the XML body.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u := c.config.BaseURL + "/" + endpoint + ".fcgi?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(endpoint, "transport")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(endpoint, "read")
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(endpoint, "status_"+strconv.Itoa(resp.StatusCode))
		return domain.NewUpstreamError(sourceName, resp.StatusCode, string(body))
	}

	if err := xml.Unmarshal(body, out); err != nil {
		c.recordFailure(endpoint, "decode")
		return fmt.Errorf("failed to parse XML response: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordSourceRequest(metricName, endpoint, time.Since(start).Seconds())
	}
	return nil
}

func (c *Client) recordFailure(endpoint, errType string) {
	if c.metrics != nil {
		c.metrics.RecordSourceRequestFailed(metricName, endpoint, errType)
	}
}

// articleToPaper converts a PubmedArticle to a domain.Paper.
func articleToPaper(article PubmedArticle) *domain.Paper {
	citation := article.MedlineCitation
	pmid := strings.TrimSpace(citation.PMID)

	paper := &domain.Paper{
		PMID:     pmid,
		Title:    cleanText(citation.Article.ArticleTitle.Inner),
		Abstract: extractAbstract(citation.Article.Abstract),
		Journal:  strings.TrimSpace(citation.Article.Journal.Title),
		Year:     extractYear(citation.Article),
		Authors:  extractAuthors(citation.Article.AuthorList),
	}
	if pmid != "" {
		paper.URL = domain.PubMedArticleURL + pmid + "/"
	}
	return paper
}

// extractYear prefers PubDate/Year, then the leading year of MedlineDate,
// then the first ArticleDate year. Returns 0 when none parse.
func extractYear(article Article) int {
	pubDate := article.Journal.JournalIssue.PubDate
	if y := parseYear(pubDate.Year); y > 0 {
		return y
	}
	if pubDate.MedlineDate != "" {
		if y := extractYearFromMedlineDate(pubDate.MedlineDate); y > 0 {
			return y
		}
	}
	for _, ad := range article.ArticleDate {
		if y := parseYear(ad.Year); y > 0 {
			return y
		}
	}
	return 0
}

func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0
	}
	return y
}

// extractYearFromMedlineDate reads the year from forms such as
// "2020 Jan-Feb", "2020 Spring" or "2019-2020".
func extractYearFromMedlineDate(medlineDate string) int {
	fields := strings.Fields(medlineDate)
	if len(fields) == 0 || len(fields[0]) < 4 {
		return 0
	}
	return parseYear(fields[0][:4])
}

// extractAbstract joins the abstract sections with a single space.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil {
		return ""
	}
	parts := make([]string, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		if text := cleanText(at.Inner); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to "ForeName LastName" names.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		name := strings.TrimSpace(a.CollectiveName)
		if name == "" {
			last := strings.TrimSpace(a.LastName)
			fore := strings.TrimSpace(a.ForeName)
			switch {
			case last != "" && fore != "":
				name = fore + " " + last
			default:
				name = last
			}
		}
		if name == "" {
			continue
		}

		var affiliation string
		if len(a.AffiliationInfo) > 0 {
			affiliation = strings.TrimSpace(a.AffiliationInfo[0].Affiliation)
		}
		authors = append(authors, domain.Author{Name: name, Affiliation: affiliation})
	}
	return authors
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// cleanText strips inline markup, decodes entities and collapses
// whitespace.
func cleanText(inner string) string {
	text := tagPattern.ReplaceAllString(inner, "")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

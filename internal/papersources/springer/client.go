// Package springer implements papersources.ArticleSource for the Springer
// Nature OpenAccess JSON API.
package springer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/papersources"
)

const (
	// DefaultBaseURL is the OpenAccess JSON endpoint.
	DefaultBaseURL = "https://api.springernature.com/openaccess/json"

	// DefaultRateLimit is the default rate limit in requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	sourceName = "Springer OpenAccess"

	maxBodySize  = 10 << 20
	maxErrorBody = 1 << 10
)

// Config holds configuration for the Springer client.
type Config struct {
	// BaseURL is the OpenAccess JSON endpoint.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of retries on 429 and 5xx.
	MaxRetries int

	// UserAgent is sent with every request.
	UserAgent string
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client searches the OpenAccess API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	logger     zerolog.Logger
}

var _ papersources.ArticleSource = (*Client)(nil)

// New creates a new Springer client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  cfg.UserAgent,
		Logger:     logger,
	})

	return NewWithHTTPClient(cfg, httpClient, logger)
}

// NewWithHTTPClient creates a Springer client around an existing HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// Search runs one OpenAccess query.
//
// A 4xx response yields *domain.InvalidCredentialError so the caller can
// retry with another key. A 2xx body without a records array yields
// domain.ErrMalformedResponse. Records that fail normalization are returned
// in SearchResult.Skipped.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) (*papersources.SearchResult, error) {
	startTime := time.Now()

	if err := query.Validate(); err != nil {
		return nil, err
	}

	rendered := papersources.BuildQuery(query.Keywords)
	searchURL, err := c.buildSearchURL(rendered, query)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	resp, err := c.httpClient.Get(ctx, searchURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewInvalidCredentialError(resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, domain.NewTransportError(papersources.RedactURL(resp.Request.URL), resp.StatusCode, nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrMalformedResponse, err)
	}
	if searchResp.Records == nil {
		return nil, fmt.Errorf("%w: response has no records array", domain.ErrMalformedResponse)
	}

	raw := *searchResp.Records
	result := &papersources.SearchResult{
		Articles: make([]domain.Article, 0, len(raw)),
		Query:    rendered,
	}
	for i, msg := range raw {
		article, err := decodeRecord(msg)
		if err != nil {
			result.Skipped = append(result.Skipped, papersources.SkippedRecord{Index: i, Err: err})
			continue
		}
		result.Articles = append(result.Articles, article)
	}

	if len(searchResp.Result) > 0 {
		result.TotalResults, _ = strconv.Atoi(searchResp.Result[0].Total)
	}
	result.SearchDuration = time.Since(startTime)

	c.logger.Debug().
		Str("query", rendered).
		Int("records", len(raw)).
		Int("skipped", len(result.Skipped)).
		Dur("duration", result.SearchDuration).
		Msg("search completed")

	return result, nil
}

func decodeRecord(msg json.RawMessage) (domain.Article, error) {
	var rec Record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return domain.Article{}, fmt.Errorf("decoding record: %w", err)
	}
	return Normalize(rec)
}

// buildSearchURL appends q verbatim since BuildQuery has already escaped it;
// the remaining parameters go through url.Values.
func (c *Client) buildSearchURL(rendered string, query domain.SearchQuery) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", query.APIKey)
	params.Set("p", strconv.Itoa(query.MaxResults))

	u.RawQuery = "q=" + rendered + "&" + params.Encode()
	return u.String(), nil
}

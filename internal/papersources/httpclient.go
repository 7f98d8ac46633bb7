package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-harvester/internal/domain"
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "Helixir-PaperHarvester/1.0"

// errRetriesExhausted is the cause attached to a TransportError when every
// attempt came back with a retryable status.
var errRetriesExhausted = errors.New("max retries exhausted")

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout bounds each individual request attempt.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of extra attempts after the first one.
	// Negative disables retries.
	MaxRetries int

	// RetryDelay is the delay used when the server gives no Retry-After.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Logger receives a warning for every retried attempt.
	Logger zerolog.Logger
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client waits on the limiter before each attempt and retries
// 429 (Too Many Requests), 5xx responses and network errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Get issues a GET request for rawURL with the given Accept header.
func (c *HTTPClient) Get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.Do(req)
}

// Do executes an HTTP request with rate limiting and retries.
//
// Non-retryable responses, including 4xx other than 429, are returned to the
// caller untouched. Failures after the last attempt come back as
// *domain.TransportError. Context cancellation is returned as is.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	target := RedactURL(req.URL)

	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.config.Logger.Warn().
				Str("url", target).
				Int("attempt", attempt+1).
				Int("status", lastStatus).
				AnErr("last_error", lastErr).
				Msg("retrying request")
		}

		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctxErr := req.Context().Err(); ctxErr != nil {
					return nil, ctxErr
				}
			}
			lastErr = err
			lastStatus = 0
			if attempt < c.config.MaxRetries {
				if err := c.prepareRetry(req, c.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, domain.NewTransportError(target, 0, lastErr)
		}

		if !shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		retryDelay := c.retryDelay(resp)
		lastStatus = resp.StatusCode
		lastErr = nil
		drain(resp)

		if attempt < c.config.MaxRetries {
			if err := c.prepareRetry(req, retryDelay); err != nil {
				return nil, err
			}
			continue
		}
		return nil, domain.NewTransportError(target, lastStatus,
			fmt.Errorf("%w after %d attempts", errRetriesExhausted, c.config.MaxRetries+1))
	}

	return nil, domain.NewTransportError(target, lastStatus, lastErr)
}

// shouldRetry returns true for 429 Too Many Requests and 5xx statuses.
func shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// retryDelay honors a Retry-After header given as seconds or an HTTP date,
// falling back to the configured delay.
func (c *HTTPClient) retryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

func (c *HTTPClient) prepareRetry(req *http.Request, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
	}

	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("cannot retry request: %w", err)
	}
	req.Body = body
	return nil
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

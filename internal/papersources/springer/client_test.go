package springer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/papersources"
)

const sampleResponse = `{
  "apiMessage": "This JSON was provided by Springer Nature",
  "query": "(\"cancer\"type:Journal)",
  "result": [{"total": "1234", "start": "1", "pageLength": "3", "recordsDisplayed": "3"}],
  "records": [
    {
      "contentType": "Article",
      "title": "Tumour growth in vivo",
      "creators": [{"creator": "Smith, John"}, {"creator": "Lee, Ana"}],
      "publicationName": "British Journal of Cancer",
      "publicationDate": "2021-02-03",
      "url": [{"format": "", "platform": "", "value": "http://dx.doi.org/10.1038/bjc.1"}],
      "abstract": {"h1": "Abstract", "p": ["Background.", "Methods."]}
    },
    {
      "title": "No journal here",
      "publicationDate": "2021-02-03",
      "url": [{"value": "http://dx.doi.org/10.1038/bjc.2"}],
      "abstract": ""
    },
    {
      "title": "Single paragraph",
      "publicationName": "Oncogene",
      "publicationDate": "2020-01-01",
      "url": [{"value": "http://dx.doi.org/10.1038/onc.3"}],
      "abstract": {"p": "Only one."}
    }
  ]
}`

func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL:   serverURL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		BurstSize: 100,
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
		UserAgent:  "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient, zerolog.Nop())
}

func testQuery(t *testing.T, key string) domain.SearchQuery {
	t.Helper()
	q, err := domain.NewSearchQuery([]string{"cancer", "gene therapy"}, 3, key)
	require.NoError(t, err)
	return q
}

func TestClient_Search(t *testing.T) {
	t.Run("sends query parameters and normalizes records", func(t *testing.T) {
		var rawQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawQuery = r.URL.RawQuery
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(sampleResponse))
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "secret"))
		require.NoError(t, err)

		assert.Equal(t, "q=(%22cancer%22AND%22gene%20therapy%22type:Journal)&api_key=secret&p=3", rawQuery)
		assert.Equal(t, "(%22cancer%22AND%22gene%20therapy%22type:Journal)", result.Query)
		assert.Equal(t, 1234, result.TotalResults)
		assert.Equal(t, 3, result.Found())

		require.Len(t, result.Articles, 2)
		assert.Equal(t, "Tumour growth in vivo", result.Articles[0].Title())
		assert.Equal(t, "Background. Methods.", result.Articles[0].Abstract())
		assert.Equal(t, []string{"Smith, John", "Lee, Ana"}, result.Articles[0].Authors())
		assert.Equal(t, "Only one.", result.Articles[1].Abstract())

		require.Len(t, result.Skipped, 1)
		assert.Equal(t, 1, result.Skipped[0].Index)
		assert.True(t, errors.Is(result.Skipped[0].Err, domain.ErrMissingField))
	})

	t.Run("empty records array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":[{"total":"0"}],"records":[]}`))
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "k"))
		require.NoError(t, err)
		assert.Empty(t, result.Articles)
		assert.Equal(t, 0, result.Found())
	})

	t.Run("missing records key is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"apiMessage":"hi"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "k"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
	})

	t.Run("invalid json is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "k"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
	})

	t.Run("4xx is an invalid credential", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid API key"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "bad"))
		require.Error(t, err)

		var credErr *domain.InvalidCredentialError
		require.True(t, errors.As(err, &credErr))
		assert.Equal(t, http.StatusUnauthorized, credErr.StatusCode)
		assert.Contains(t, credErr.Message, "Invalid API key")
	})

	t.Run("429 is retried and ends as a transport error", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "k"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrTransport))
		assert.False(t, errors.Is(err, domain.ErrInvalidCredential))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("5xx is a transport error without leaking the key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), testQuery(t, "topsecret"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrTransport))
		assert.NotContains(t, err.Error(), "topsecret")
		assert.False(t, errors.Is(err, domain.ErrInvalidCredential))
	})

	t.Run("rejects invalid query before sending", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), domain.SearchQuery{Keywords: []string{"x"}, MaxResults: 500, APIKey: "k"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.False(t, called)
	})
}

func TestNew(t *testing.T) {
	c := New(Config{}, zerolog.Nop())

	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, DefaultTimeout, c.config.Timeout)
	assert.Equal(t, DefaultRateLimit, c.config.RateLimit)
	assert.Equal(t, "Springer OpenAccess", c.Name())
}

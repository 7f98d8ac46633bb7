package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/papersources"
)

const maxPageSize = 5 << 20

// LandingPage is a fetched article landing page.
type LandingPage struct {
	// BaseURL is the page URL after redirects.
	BaseURL string
	// Links holds every anchor href in document order.
	Links []string
}

// PageLoader fetches landing pages through the rate-limited HTTP client.
type PageLoader struct {
	client *papersources.HTTPClient
}

// NewPageLoader creates a PageLoader.
func NewPageLoader(client *papersources.HTTPClient) *PageLoader {
	return &PageLoader{client: client}
}

// Load fetches rawURL and extracts its anchors. A status of 400 or above is
// reported as *domain.TransportError.
func (l *PageLoader) Load(ctx context.Context, rawURL string) (*LandingPage, error) {
	resp, err := l.client.Get(ctx, rawURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, domain.NewTransportError(rawURL, resp.StatusCode, nil)
	}

	links, err := ParseLinks(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, err
	}

	base := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	return &LandingPage{BaseURL: base, Links: links}, nil
}

// ParseLinks returns the href of every anchor in r, in document order.
// Anchors without an href are ignored.
func ParseLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing landing page: %w", err)
	}

	var links []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links, nil
}

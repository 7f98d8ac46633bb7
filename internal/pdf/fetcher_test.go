package pdf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-harvester/internal/domain"
)

type fakePages struct {
	page *LandingPage
	err  error
}

func (f *fakePages) Load(_ context.Context, _ string) (*LandingPage, error) {
	return f.page, f.err
}

type fakeSaver struct {
	mu    sync.Mutex
	urls  []string
	dests []string
	err   error
}

func (f *fakeSaver) Save(_ context.Context, rawURL, dest string) (*SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, rawURL)
	f.dests = append(f.dests, dest)
	if f.err != nil {
		return nil, f.err
	}
	if err := os.WriteFile(dest, samplePDFContent, 0o644); err != nil {
		return nil, err
	}
	return &SaveResult{Path: dest, SizeBytes: int64(len(samplePDFContent)), ContentHash: "hash"}, nil
}

func article(t *testing.T, title, journal string) domain.Article {
	t.Helper()
	a, err := domain.NewArticle(domain.ArticleParams{
		Title:           title,
		Journal:         journal,
		PublicationDate: "2021-01-01",
		URL:             "http://dx.doi.org/10.1/x",
	})
	require.NoError(t, err)
	return a
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"Cancer: a review?", "Cancer a review"},
		{"Plain title", "Plain title"},
		{"a::b??c", "abc"},
		{"Keeps / and * and \"quotes\"", "Keeps / and * and \"quotes\""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, SanitizeName(tt.in))
	}
}

func TestFetcher_Fetch(t *testing.T) {
	t.Run("downloads to journal directory", func(t *testing.T) {
		root := t.TempDir()
		saver := &fakeSaver{}
		pages := &fakePages{page: &LandingPage{
			BaseURL: "https://link.springer.com/article/1",
			Links:   []string{"/about", "/content/pdf/1.pdf"},
		}}

		f := NewFetcher(root, pages, NewResolver(""), saver, zerolog.Nop())
		rec := f.Fetch(context.Background(), article(t, "What: is cancer?", "Nature: Reviews"))

		assert.Equal(t, domain.OutcomeDownloaded, rec.Outcome)
		assert.Equal(t, "https://link.springer.com/article/1/content/pdf/1.pdf", rec.PDFURL)

		want := filepath.Join(root, "Nature Reviews", "What is cancer.pdf")
		assert.Equal(t, want, rec.Path)
		assert.Equal(t, []string{want}, saver.dests)
		assert.FileExists(t, want)
	})

	t.Run("no pdf link is skipped and directory still exists", func(t *testing.T) {
		root := t.TempDir()
		saver := &fakeSaver{}
		pages := &fakePages{page: &LandingPage{BaseURL: "https://x", Links: []string{"/about"}}}

		f := NewFetcher(root, pages, NewResolver(""), saver, zerolog.Nop())
		rec := f.Fetch(context.Background(), article(t, "Title", "Journal"))

		assert.Equal(t, domain.OutcomeSkippedNoPDFLink, rec.Outcome)
		assert.Empty(t, saver.urls)
		assert.DirExists(t, filepath.Join(root, "Journal"))
	})

	t.Run("landing page failure is recorded", func(t *testing.T) {
		pages := &fakePages{err: domain.NewTransportError("http://x", 503, nil)}

		f := NewFetcher(t.TempDir(), pages, NewResolver(""), &fakeSaver{}, zerolog.Nop())
		rec := f.Fetch(context.Background(), article(t, "Title", "Journal"))

		assert.Equal(t, domain.OutcomeFailed, rec.Outcome)
		assert.Contains(t, rec.Reason, "loading landing page")
	})

	t.Run("save failure is recorded with pdf url", func(t *testing.T) {
		pages := &fakePages{page: &LandingPage{BaseURL: "https://x", Links: []string{"https://cdn/a.pdf"}}}
		saver := &fakeSaver{err: errors.New("connection reset")}

		f := NewFetcher(t.TempDir(), pages, NewResolver(""), saver, zerolog.Nop())
		rec := f.Fetch(context.Background(), article(t, "Title", "Journal"))

		assert.Equal(t, domain.OutcomeFailed, rec.Outcome)
		assert.Equal(t, "https://cdn/a.pdf", rec.PDFURL)
		assert.Equal(t, "connection reset", rec.Reason)
	})

	t.Run("refuses paths outside root", func(t *testing.T) {
		pages := &fakePages{page: &LandingPage{BaseURL: "https://x", Links: []string{"https://cdn/a.pdf"}}}
		saver := &fakeSaver{}

		f := NewFetcher(t.TempDir(), pages, NewResolver(""), saver, zerolog.Nop())
		rec := f.Fetch(context.Background(), article(t, "x", "../../etc"))

		assert.Equal(t, domain.OutcomeFailed, rec.Outcome)
		assert.Empty(t, saver.urls)
	})

	t.Run("same journal twice is idempotent", func(t *testing.T) {
		root := t.TempDir()
		pages := &fakePages{page: &LandingPage{BaseURL: "https://x", Links: []string{"https://cdn/a.pdf"}}}

		f := NewFetcher(root, pages, NewResolver(""), &fakeSaver{}, zerolog.Nop())
		articles := make([]domain.Article, 4)
		for i := range articles {
			articles[i] = article(t, "Title "+string(rune('A'+i)), "Shared")
		}

		var wg sync.WaitGroup
		records := make([]domain.DownloadRecord, len(articles))
		for i := range articles {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				records[i] = f.Fetch(context.Background(), articles[i])
			}(i)
		}
		wg.Wait()

		for _, rec := range records {
			assert.Equal(t, domain.OutcomeDownloaded, rec.Outcome)
		}
	})
}

func TestFetcher_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="` + server.URL + `/files/paper.pdf">PDF</a></body></html>`))
	})
	mux.HandleFunc("/files/paper.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(samplePDFContent)
	})

	a, err := domain.NewArticle(domain.ArticleParams{
		Title:           "Integration?",
		Journal:         "Test Journal",
		PublicationDate: "2021",
		URL:             server.URL + "/landing",
	})
	require.NoError(t, err)

	root := t.TempDir()
	f := NewFetcher(root, testPageLoader(), NewResolver(""), testDownloader(Config{}), zerolog.Nop())
	rec := f.Fetch(context.Background(), a)

	require.Equal(t, domain.OutcomeDownloaded, rec.Outcome, rec.Reason)
	got, err := os.ReadFile(filepath.Join(root, "Test Journal", "Integration.pdf"))
	require.NoError(t, err)
	assert.Equal(t, samplePDFContent, got)
}

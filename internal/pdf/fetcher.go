package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/observability"
)

// PageSource loads landing pages.
type PageSource interface {
	Load(ctx context.Context, rawURL string) (*LandingPage, error)
}

// FileSaver writes a remote file to a local path.
type FileSaver interface {
	Save(ctx context.Context, rawURL, dest string) (*SaveResult, error)
}

var nameReplacer = strings.NewReplacer(":", "", "?", "")

// SanitizeName strips the characters ':' and '?' from a title or journal
// name. Nothing else is changed.
func SanitizeName(s string) string {
	return nameReplacer.Replace(s)
}

// Fetcher downloads the PDF behind each article's landing page into
// <root>/<journal>/<title>.pdf. It is safe for concurrent use as long as its
// collaborators are.
type Fetcher struct {
	root     string
	pages    PageSource
	resolver *Resolver
	saver    FileSaver
	logger   zerolog.Logger
}

// NewFetcher creates a Fetcher writing below root.
func NewFetcher(root string, pages PageSource, resolver *Resolver, saver FileSaver, logger zerolog.Logger) *Fetcher {
	if root == "" {
		root = "."
	}
	return &Fetcher{
		root:     root,
		pages:    pages,
		resolver: resolver,
		saver:    saver,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

// TargetPath returns the file path an article's PDF is written to.
func (f *Fetcher) TargetPath(a domain.Article) string {
	return filepath.Join(f.root, SanitizeName(a.Journal()), SanitizeName(a.Title())+".pdf")
}

// Fetch downloads one article. Every failure is folded into the returned
// record; Fetch never aborts the batch.
func (f *Fetcher) Fetch(ctx context.Context, a domain.Article) domain.DownloadRecord {
	log := observability.WithArticleContext(f.logger, a.Title(), a.Journal())

	dir := filepath.Join(f.root, SanitizeName(a.Journal()))
	dest := f.TargetPath(a)
	if err := f.checkWithinRoot(dest); err != nil {
		log.Warn().Err(err).Msg("refusing to write outside output directory")
		return domain.Failed(a, "", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Msg("creating journal directory failed")
		return domain.Failed(a, "", fmt.Errorf("creating journal directory: %w", err))
	}

	page, err := f.pages.Load(ctx, a.URL())
	if err != nil {
		log.Warn().Err(err).Str("url", a.URL()).Msg("loading landing page failed")
		return domain.Failed(a, "", fmt.Errorf("loading landing page: %w", err))
	}

	pdfURL, ok := f.resolver.Resolve(page.BaseURL, page.Links)
	if !ok {
		log.Info().Str("url", page.BaseURL).Int("links", len(page.Links)).Msg("no pdf link on landing page")
		return domain.SkippedNoPDFLink(a)
	}

	res, err := f.saver.Save(ctx, pdfURL, dest)
	if err != nil {
		log.Warn().Err(err).Str("pdf_url", pdfURL).Msg("downloading pdf failed")
		return domain.Failed(a, pdfURL, err)
	}

	log.Info().Str("path", res.Path).Int64("size_bytes", res.SizeBytes).Msg("pdf downloaded")
	return domain.Downloaded(a, pdfURL, res.Path, res.SizeBytes, res.ContentHash)
}

func (f *Fetcher) checkWithinRoot(dest string) error {
	rel, err := filepath.Rel(f.root, dest)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dest, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes output directory", dest)
	}
	return nil
}

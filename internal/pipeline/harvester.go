// Package pipeline drives one harvest run: search with credential retries,
// persist the article metadata, download PDFs and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/export"
	"github.com/helixir/paper-harvester/internal/observability"
	"github.com/helixir/paper-harvester/internal/papersources"
	"github.com/helixir/paper-harvester/internal/repository"
)

// ErrNoSearch is returned by operations that need the result of a search.
var ErrNoSearch = errors.New("no search has completed")

// CredentialProvider supplies a replacement API key after the search API
// rejected the previous one. attempt is the number of searches made so far.
type CredentialProvider interface {
	NextAPIKey(ctx context.Context, attempt int, cause error) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context, attempt int, cause error) (string, error)

// NextAPIKey calls f.
func (f CredentialFunc) NextAPIKey(ctx context.Context, attempt int, cause error) (string, error) {
	return f(ctx, attempt, cause)
}

// ArticleFetcher downloads the PDF of one article. *pdf.Fetcher implements it.
type ArticleFetcher interface {
	Fetch(ctx context.Context, a domain.Article) domain.DownloadRecord
}

// Config tunes a Harvester.
type Config struct {
	// MaxCredentialAttempts bounds the number of searches per run.
	MaxCredentialAttempts int

	// Workers is the number of concurrent downloads. 1 downloads sequentially.
	Workers int
}

// SearchOutcome summarizes a completed search.
type SearchOutcome struct {
	Found     int
	Malformed int
	Abstracts int
	Attempts  int
}

// Harvester owns the ordered article list of one run. It is not safe for
// concurrent use; DownloadAll parallelizes internally.
type Harvester struct {
	source  papersources.ArticleSource
	fetcher ArticleFetcher
	writer  *export.Writer
	archive repository.RunRepository
	metrics *observability.Metrics
	logger  zerolog.Logger
	cfg     Config

	runID    uuid.UUID
	started  time.Time
	archived bool
	searched bool
	articles []domain.Article
	records  []domain.DownloadRecord
	report   export.Report
}

// Option configures optional Harvester collaborators.
type Option func(*Harvester)

// WithArchive stores the run in repo.
func WithArchive(repo repository.RunRepository) Option {
	return func(h *Harvester) { h.archive = repo }
}

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Harvester) { h.metrics = m }
}

// New creates a Harvester for a single run.
func New(source papersources.ArticleSource, fetcher ArticleFetcher, writer *export.Writer, cfg Config, logger zerolog.Logger, opts ...Option) *Harvester {
	if cfg.MaxCredentialAttempts < 1 {
		cfg.MaxCredentialAttempts = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	runID := uuid.New()
	h := &Harvester{
		source:  source,
		fetcher: fetcher,
		writer:  writer,
		cfg:     cfg,
		logger:  observability.WithRunContext(logger, runID.String()),
		runID:   runID,
		started: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.report = export.Report{RunID: runID.String(), StartedAt: h.started}
	return h
}

// RunID returns the identifier of this run.
func (h *Harvester) RunID() uuid.UUID { return h.runID }

// Articles returns the articles of the last search in API order.
func (h *Harvester) Articles() []domain.Article {
	out := make([]domain.Article, len(h.articles))
	copy(out, h.articles)
	return out
}

// Records returns the download records in article order.
func (h *Harvester) Records() []domain.DownloadRecord {
	out := make([]domain.DownloadRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Report returns the run report as collected so far.
func (h *Harvester) Report() export.Report { return h.report }

// Search runs query against the source. When the API rejects the key, a new
// one is requested from creds and the search is repeated, up to
// Config.MaxCredentialAttempts searches in total. Any other error is fatal.
// On success the article list and abstract list are written before returning.
func (h *Harvester) Search(ctx context.Context, query domain.SearchQuery, creds CredentialProvider) (SearchOutcome, error) {
	if err := query.Validate(); err != nil {
		return SearchOutcome{}, err
	}

	rendered := papersources.BuildQuery(query.Keywords)
	log := observability.WithSearchContext(h.logger, rendered, h.source.Name())

	h.report.Query = rendered
	h.report.Keywords = query.Keywords
	h.report.MaxResults = query.MaxResults
	h.beginArchive(ctx, rendered, query)

	var (
		result  *papersources.SearchResult
		attempt int
	)
	for {
		attempt++
		start := time.Now()
		res, err := h.source.Search(ctx, query)
		elapsed := time.Since(start).Seconds()
		if err == nil {
			result = res
			break
		}

		var credErr *domain.InvalidCredentialError
		if !errors.As(err, &credErr) {
			h.recordSearchFailure(classifySearchError(err), elapsed)
			log.Error().Err(err).Int("attempt", attempt).Msg("search failed")
			return SearchOutcome{Attempts: attempt}, fmt.Errorf("searching %s: %w", h.source.Name(), err)
		}

		h.recordSearchFailure("invalid_credential", elapsed)
		log.Warn().Int("status", credErr.StatusCode).Int("attempt", attempt).Msg("api key rejected")

		if attempt >= h.cfg.MaxCredentialAttempts || creds == nil {
			return SearchOutcome{Attempts: attempt}, fmt.Errorf("api key rejected after %d attempts: %w", attempt, err)
		}

		key, kerr := creds.NextAPIKey(ctx, attempt, err)
		if kerr != nil {
			return SearchOutcome{Attempts: attempt}, fmt.Errorf("obtaining api key: %w", kerr)
		}
		next := query.WithAPIKey(key)
		if verr := next.Validate(); verr != nil {
			return SearchOutcome{Attempts: attempt}, verr
		}
		query = next
		if h.metrics != nil {
			h.metrics.RecordCredentialRetry()
		}
	}

	for _, s := range result.Skipped {
		log.Warn().Err(s.Err).Int("index", s.Index).Msg("skipping malformed record")
	}

	h.articles = result.Articles
	h.searched = true

	n, abstracts, err := h.writer.WriteArticles(h.articles)
	if err != nil {
		return SearchOutcome{Attempts: attempt}, fmt.Errorf("persisting articles: %w", err)
	}

	outcome := SearchOutcome{
		Found:     n,
		Malformed: len(result.Skipped),
		Abstracts: abstracts,
		Attempts:  attempt,
	}
	h.report.Found = outcome.Found
	h.report.Malformed = outcome.Malformed
	h.report.Abstracts = outcome.Abstracts

	if h.metrics != nil {
		h.metrics.RecordSearchCompleted(h.source.Name(), outcome.Found, outcome.Malformed, outcome.Abstracts, result.SearchDuration.Seconds())
	}
	if h.archived {
		if err := h.archive.AddArticles(ctx, h.runID, h.articles); err != nil {
			log.Warn().Err(err).Msg("archiving articles failed")
		}
	}

	log.Info().
		Int("found", outcome.Found).
		Int("malformed", outcome.Malformed).
		Int("abstracts", outcome.Abstracts).
		Int("total_results", result.TotalResults).
		Dur("duration", result.SearchDuration).
		Msg("search completed")

	return outcome, nil
}

// DownloadAll fetches the PDF of every article. Records are index-aligned
// with Articles regardless of the worker count. Per-article failures are
// folded into the records; only context cancellation is returned as an error.
func (h *Harvester) DownloadAll(ctx context.Context) ([]domain.DownloadRecord, error) {
	if !h.searched {
		return nil, ErrNoSearch
	}

	records := make([]domain.DownloadRecord, len(h.articles))
	if h.cfg.Workers == 1 {
		for i, a := range h.articles {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("downloads interrupted: %w", err)
			}
			records[i] = h.fetchOne(ctx, a)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(h.cfg.Workers)
		for i, a := range h.articles {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				records[i] = h.fetchOne(gctx, a)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("downloads interrupted: %w", err)
		}
	}

	h.records = records
	tally := domain.Tally(records)
	h.report.Downloads = records
	h.report.Downloaded = tally.Downloaded
	h.report.Skipped = tally.Skipped
	h.report.Failed = tally.Failed

	if h.archived {
		if err := h.archive.RecordDownloads(ctx, h.runID, records); err != nil {
			h.logger.Warn().Err(err).Msg("archiving download records failed")
		}
	}

	h.logger.Info().
		Int("downloaded", tally.Downloaded).
		Int("skipped", tally.Skipped).
		Int("failed", tally.Failed).
		Int("workers", h.cfg.Workers).
		Msg("downloads completed")

	return h.Records(), nil
}

// Corpus returns the persisted abstract list, the input of the summary loop.
func (h *Harvester) Corpus() (string, error) {
	if !h.searched {
		return "", ErrNoSearch
	}
	return h.writer.ReadAbstracts()
}

// RecordSummary attaches the final summary to the run report.
func (h *Harvester) RecordSummary(text string, ratio float64) {
	h.report.Summary = text
	h.report.SummaryRatio = ratio
}

// Finish writes the run report and closes the archived run. runErr is the
// error that ended the run, if any.
func (h *Harvester) Finish(ctx context.Context, runErr error) error {
	h.report.FinishedAt = time.Now().UTC()
	elapsed := h.report.FinishedAt.Sub(h.started)

	if h.metrics != nil {
		h.metrics.RecordRun(elapsed.Seconds())
	}

	if h.archived {
		result := repository.RunResult{
			Status: repository.RunStatusCompleted,
			Counts: repository.RunCounts{
				Found:      h.report.Found,
				Malformed:  h.report.Malformed,
				Abstracts:  h.report.Abstracts,
				Downloaded: h.report.Downloaded,
				Skipped:    h.report.Skipped,
				Failed:     h.report.Failed,
			},
			Summary:      h.report.Summary,
			SummaryRatio: h.report.SummaryRatio,
		}
		if runErr != nil {
			result.Status = repository.RunStatusFailed
			result.ErrorMessage = runErr.Error()
		}
		if err := h.archive.Finish(ctx, h.runID, result); err != nil {
			h.logger.Warn().Err(err).Msg("archiving run result failed")
		}
	}

	if err := h.writer.WriteReport(h.report); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}

	h.logger.Info().Dur("duration", elapsed).Bool("failed", runErr != nil).Msg("run finished")
	return nil
}

func (h *Harvester) fetchOne(ctx context.Context, a domain.Article) domain.DownloadRecord {
	start := time.Now()
	rec := h.fetcher.Fetch(ctx, a)
	if h.metrics != nil {
		h.metrics.RecordDownload(rec.Outcome.String(), rec.SizeBytes, time.Since(start).Seconds())
	}
	return rec
}

func (h *Harvester) beginArchive(ctx context.Context, rendered string, query domain.SearchQuery) {
	if h.archive == nil || h.archived {
		return
	}
	run := &repository.Run{
		ID:         h.runID,
		Query:      rendered,
		Keywords:   query.Keywords,
		MaxResults: query.MaxResults,
		StartedAt:  h.started,
	}
	if err := h.archive.Create(ctx, run); err != nil {
		h.logger.Warn().Err(err).Msg("archiving run failed, continuing without archive")
		return
	}
	h.archived = true
}

func (h *Harvester) recordSearchFailure(outcome string, seconds float64) {
	if h.metrics != nil {
		h.metrics.RecordSearchFailed(h.source.Name(), outcome, seconds)
	}
}

func classifySearchError(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

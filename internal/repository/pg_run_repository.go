package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-harvester/internal/domain"
)

var _ RunRepository = (*PgRunRepository)(nil)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var runColumns = []string{
	"id", "query", "keywords", "max_results", "status",
	"found", "malformed", "abstracts", "downloaded", "skipped", "failed",
	"summary", "summary_ratio", "error_message",
	"started_at", "finished_at",
}

// PgRunRepository is a PostgreSQL implementation of RunRepository.
type PgRunRepository struct {
	db DBTX
	tx Transactor
}

// NewPgRunRepository creates a new PostgreSQL run repository.
func NewPgRunRepository(db DBTX) *PgRunRepository {
	return &PgRunRepository{db: db}
}

// WithTransactor returns a copy of r whose batch writes each run in their own
// transaction, so a run never keeps half of its articles or download records.
func (r *PgRunRepository) WithTransactor(tx Transactor) *PgRunRepository {
	return &PgRunRepository{db: r.db, tx: tx}
}

// inTx runs fn on a transaction when a Transactor is set and on db otherwise.
func (r *PgRunRepository) inTx(ctx context.Context, fn func(db DBTX) error) error {
	if r.tx == nil {
		return fn(r.db)
	}
	return r.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// Create inserts a new run in the running state.
func (r *PgRunRepository) Create(ctx context.Context, run *Run) error {
	if run == nil {
		return domain.NewValidationError("run", "run cannot be nil")
	}
	if run.Query == "" {
		return domain.NewValidationError("query", "query is required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = RunStatusRunning

	keywords := run.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	query, args, err := psql.Insert("harvest_runs").
		Columns("id", "query", "keywords", "max_results", "status", "started_at").
		Values(run.ID, run.Query, keywords, run.MaxResults, string(run.Status), run.StartedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// AddArticles queues one insert per article and sends them in a single batch.
func (r *PgRunRepository) AddArticles(ctx context.Context, runID uuid.UUID, articles []domain.Article) error {
	if runID == uuid.Nil {
		return domain.NewValidationError("run_id", "run ID is required")
	}
	if len(articles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, a := range articles {
		query, args, err := psql.Insert("harvest_articles").
			Columns("id", "run_id", "position", "title", "authors", "journal", "publication_date", "url", "abstract").
			Values(uuid.New(), runID, i, a.Title(), a.Authors(), a.Journal(), a.PublicationDate(), a.URL(), a.Abstract()).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build article insert: %w", err)
		}
		batch.Queue(query, args...)
	}

	return r.inTx(ctx, func(db DBTX) error {
		return execBatch(ctx, db, batch, "article")
	})
}

// RecordDownloads stores one row per download record. Position i refers to
// the i-th article of the run.
func (r *PgRunRepository) RecordDownloads(ctx context.Context, runID uuid.UUID, records []domain.DownloadRecord) error {
	if runID == uuid.Nil {
		return domain.NewValidationError("run_id", "run ID is required")
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, rec := range records {
		if !rec.Outcome.IsValid() {
			return domain.NewValidationError("outcome", fmt.Sprintf("record %d has unknown outcome %q", i, rec.Outcome))
		}
		query, args, err := psql.Insert("article_downloads").
			Columns("id", "run_id", "position", "landing_url", "outcome", "reason", "pdf_url", "path", "size_bytes", "content_hash").
			Values(uuid.New(), runID, i, rec.LandingURL, rec.Outcome.String(), rec.Reason, rec.PDFURL, rec.Path, rec.SizeBytes, rec.ContentHash).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build download insert: %w", err)
		}
		batch.Queue(query, args...)
	}

	return r.inTx(ctx, func(db DBTX) error {
		return execBatch(ctx, db, batch, "download")
	})
}

// Finish records the final counts and status of a run.
func (r *PgRunRepository) Finish(ctx context.Context, runID uuid.UUID, result RunResult) error {
	if runID == uuid.Nil {
		return domain.NewValidationError("run_id", "run ID is required")
	}
	if !result.Status.IsTerminal() {
		return domain.NewValidationError("status", fmt.Sprintf("cannot finish run with status %q", result.Status))
	}

	query, args, err := psql.Update("harvest_runs").
		Set("status", string(result.Status)).
		Set("found", result.Counts.Found).
		Set("malformed", result.Counts.Malformed).
		Set("abstracts", result.Counts.Abstracts).
		Set("downloaded", result.Counts.Downloaded).
		Set("skipped", result.Counts.Skipped).
		Set("failed", result.Counts.Failed).
		Set("summary", nullString(result.Summary)).
		Set("summary_ratio", nullFloat(result.SummaryRatio)).
		Set("error_message", nullString(result.ErrorMessage)).
		Set("finished_at", time.Now().UTC()).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// Get returns a run by ID.
func (r *PgRunRepository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	query, args, err := psql.Select(runColumns...).
		From("harvest_runs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	run, err := scanRun(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Articles returns the stored articles of a run in result order.
func (r *PgRunRepository) Articles(ctx context.Context, runID uuid.UUID) ([]domain.Article, error) {
	query, args, err := psql.Select("title", "authors", "journal", "publication_date", "url", "abstract").
		From("harvest_articles").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var p domain.ArticleParams
		if err := rows.Scan(&p.Title, &p.Authors, &p.Journal, &p.PublicationDate, &p.URL, &p.Abstract); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a, err := domain.NewArticle(p)
		if err != nil {
			return nil, fmt.Errorf("stored article %q: %w", p.Title, err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return articles, nil
}

// List returns matching runs newest first together with the total match count.
func (r *PgRunRepository) List(ctx context.Context, filter RunFilter) ([]*Run, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	countQuery, countArgs, err := applyRunFilter(psql.Select("COUNT(*)").From("harvest_runs"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	selectQuery, args, err := applyRunFilter(psql.Select(runColumns...).From("harvest_runs"), filter).
		OrderBy("started_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0, filter.Limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, total, nil
}

func applyRunFilter(b sq.SelectBuilder, f RunFilter) sq.SelectBuilder {
	if len(f.Status) > 0 {
		statuses := make([]string, len(f.Status))
		for i, s := range f.Status {
			statuses[i] = string(s)
		}
		b = b.Where(sq.Eq{"status": statuses})
	}
	if f.Keyword != "" {
		b = b.Where(sq.Expr("? = ANY(keywords)", f.Keyword))
	}
	if f.StartedAfter != nil {
		b = b.Where(sq.Gt{"started_at": *f.StartedAfter})
	}
	if f.StartedBefore != nil {
		b = b.Where(sq.Lt{"started_at": *f.StartedBefore})
	}
	return b
}

func execBatch(ctx context.Context, db DBTX, batch *pgx.Batch, what string) error {
	br := db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert %s at position %d: %w", what, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close %s batch: %w", what, err)
	}
	return nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		run          Run
		status       string
		summary      *string
		summaryRatio *float64
		errorMessage *string
	)
	err := row.Scan(
		&run.ID, &run.Query, &run.Keywords, &run.MaxResults, &status,
		&run.Counts.Found, &run.Counts.Malformed, &run.Counts.Abstracts,
		&run.Counts.Downloaded, &run.Counts.Skipped, &run.Counts.Failed,
		&summary, &summaryRatio, &errorMessage,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if summary != nil {
		run.Summary = *summary
	}
	if summaryRatio != nil {
		run.SummaryRatio = *summaryRatio
	}
	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}
	return &run, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

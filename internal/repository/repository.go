// Package repository archives harvest runs in PostgreSQL.
//
// A run row is created when the search starts, the ordered article list and
// per-article download records are attached in batches, and the run is closed
// with its final counts and summary. Repositories accept a DBTX so they work on
// the pool and on a transaction alike. Given a Transactor, batch writes are
// atomic per call:
//
//	runs := repository.NewPgRunRepository(db).WithTransactor(db)
//	err := runs.AddArticles(ctx, runID, articles)
//
// Missing rows are reported as domain.ErrNotFound; bad arguments as
// *domain.ValidationError.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-harvester/internal/database"
	"github.com/helixir/paper-harvester/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Transactor runs fn inside a transaction, committing on success and rolling
// back on error. *database.DB implements it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ Transactor = (*database.DB)(nil)

// RunStatus is the lifecycle state of an archived run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further updates are expected.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is one archived harvest run.
type Run struct {
	ID           uuid.UUID
	Query        string
	Keywords     []string
	MaxResults   int
	Status       RunStatus
	Counts       RunCounts
	Summary      string
	SummaryRatio float64
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunCounts are the totals recorded when a run finishes.
type RunCounts struct {
	Found      int
	Malformed  int
	Abstracts  int
	Downloaded int
	Skipped    int
	Failed     int
}

// RunResult closes a run.
type RunResult struct {
	Status       RunStatus
	Counts       RunCounts
	Summary      string
	SummaryRatio float64
	ErrorMessage string
}

// RunFilter narrows List results.
type RunFilter struct {
	Status        []RunStatus
	Keyword       string
	StartedAfter  *time.Time
	StartedBefore *time.Time
	Limit         int
	Offset        int
}

// RunRepository persists harvest runs.
type RunRepository interface {
	// Create inserts a new running run. A nil ID is assigned.
	Create(ctx context.Context, run *Run) error

	// AddArticles stores articles in their result order.
	AddArticles(ctx context.Context, runID uuid.UUID, articles []domain.Article) error

	// RecordDownloads stores download records, index-aligned with the articles.
	RecordDownloads(ctx context.Context, runID uuid.UUID, records []domain.DownloadRecord) error

	// Finish records the final state of a run.
	Finish(ctx context.Context, runID uuid.UUID, result RunResult) error

	// Get returns one run.
	Get(ctx context.Context, id uuid.UUID) (*Run, error)

	// Articles returns the stored articles of a run in result order.
	Articles(ctx context.Context, runID uuid.UUID) ([]domain.Article, error)

	// List returns runs newest first and the total number of matches.
	List(ctx context.Context, filter RunFilter) ([]*Run, int64, error)
}

const (
	defaultFilterLimit = 50
	maxFilterLimit     = 500
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and offset to >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

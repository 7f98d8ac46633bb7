//go:build integration

package repository_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-harvester/internal/database/dbtest"
	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/repository"
)

func TestPgRunRepository_Lifecycle(t *testing.T) {
	db := dbtest.Start(t)
	ctx := context.Background()
	runs := repository.NewPgRunRepository(db)

	run := &repository.Run{
		Query:      "(%22cancer%22type:Journal)",
		Keywords:   []string{"cancer"},
		MaxResults: 2,
	}
	require.NoError(t, runs.Create(ctx, run))

	first, err := domain.NewArticle(domain.ArticleParams{
		Title: "First", Authors: []string{"Smith, J."}, Journal: "J",
		PublicationDate: "2021-01-01", URL: "http://dx.doi.org/1", Abstract: "Cells divide.",
	})
	require.NoError(t, err)
	second, err := domain.NewArticle(domain.ArticleParams{
		Title: "Second", Journal: "J", PublicationDate: "2021-01-02", URL: "http://dx.doi.org/2",
	})
	require.NoError(t, err)

	err = db.WithTransaction(ctx, func(tx pgx.Tx) error {
		txRuns := repository.NewPgRunRepository(tx)
		if err := txRuns.AddArticles(ctx, run.ID, []domain.Article{first, second}); err != nil {
			return err
		}
		return txRuns.RecordDownloads(ctx, run.ID, []domain.DownloadRecord{
			domain.Downloaded(first, "http://x/1.pdf", "J/First.pdf", 10, "h"),
			domain.SkippedNoPDFLink(second),
		})
	})
	require.NoError(t, err)

	require.NoError(t, runs.Finish(ctx, run.ID, repository.RunResult{
		Status:       repository.RunStatusCompleted,
		Counts:       repository.RunCounts{Found: 2, Abstracts: 1, Downloaded: 1, Skipped: 1},
		Summary:      "Cells divide.",
		SummaryRatio: 0.2,
	}))

	got, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.RunStatusCompleted, got.Status)
	assert.Equal(t, "Cells divide.", got.Summary)
	assert.InDelta(t, 0.2, got.SummaryRatio, 1e-9)
	assert.NotNil(t, got.FinishedAt)

	articles, err := runs.Articles(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "First", articles[0].Title())
	assert.Equal(t, []string{"Smith, J."}, articles[0].Authors())

	listed, total, err := runs.List(ctx, repository.RunFilter{Keyword: "cancer"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, listed, 1)
	assert.Equal(t, run.ID, listed[0].ID)
}

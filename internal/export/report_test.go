package export

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-harvester/internal/domain"
)

func sampleReport() Report {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return Report{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Query:      "(%22cancer%22type:Journal)",
		Keywords:   []string{"cancer"},
		MaxResults: 10,
		Found:      2,
		Malformed:  1,
		Abstracts:  1,
		Downloaded: 1,
		Skipped:    1,
		Downloads: []domain.DownloadRecord{
			{Title: "A", Journal: "J", LandingURL: "http://x/a", Outcome: domain.OutcomeDownloaded, Path: "J/A.pdf", SizeBytes: 10},
			{Title: "B", Journal: "J", LandingURL: "http://x/b", Outcome: domain.OutcomeSkippedNoPDFLink, Reason: "no pdf link found on landing page"},
		},
		Summary:      "Cells grow.",
		SummaryRatio: 0.2,
	}
}

func TestReport_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeReport(&buf, sampleReport()))

	assert.Contains(t, buf.String(), "outcome: skipped_no_pdf_link")

	got, err := DecodeReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleReport(), got)
}

func TestWriter_WriteReport(t *testing.T) {
	t.Run("writes configured file", func(t *testing.T) {
		files := testFiles(t)
		require.NoError(t, NewWriter(files).WriteReport(sampleReport()))

		data, err := os.ReadFile(files.Path(files.Report))
		require.NoError(t, err)
		assert.Contains(t, string(data), "run_id: run-1")
	})

	t.Run("disabled without file name", func(t *testing.T) {
		files := testFiles(t)
		files.Report = ""
		require.NoError(t, NewWriter(files).WriteReport(sampleReport()))

		entries, err := os.ReadDir(files.Dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

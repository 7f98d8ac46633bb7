package domain

// DownloadOutcome classifies the result of fetching one article's PDF.
type DownloadOutcome string

const (
	// OutcomeDownloaded means the PDF was written to disk.
	OutcomeDownloaded DownloadOutcome = "downloaded"

	// OutcomeSkippedNoPDFLink means the landing page had no link containing ".pdf".
	OutcomeSkippedNoPDFLink DownloadOutcome = "skipped_no_pdf_link"

	// OutcomeFailed means a transport or I/O error stopped this article.
	OutcomeFailed DownloadOutcome = "failed"
)

// String returns the string representation of the outcome.
func (o DownloadOutcome) String() string {
	return string(o)
}

// IsValid reports whether o is a known outcome.
func (o DownloadOutcome) IsValid() bool {
	switch o {
	case OutcomeDownloaded, OutcomeSkippedNoPDFLink, OutcomeFailed:
		return true
	}
	return false
}

// DownloadRecord is the per-article result of a download attempt.
type DownloadRecord struct {
	Title       string          `yaml:"title"`
	Journal     string          `yaml:"journal"`
	LandingURL  string          `yaml:"landing_url"`
	Outcome     DownloadOutcome `yaml:"outcome"`
	Reason      string          `yaml:"reason,omitempty"`
	PDFURL      string          `yaml:"pdf_url,omitempty"`
	Path        string          `yaml:"path,omitempty"`
	SizeBytes   int64           `yaml:"size_bytes,omitempty"`
	ContentHash string          `yaml:"content_hash,omitempty"`
}

// Downloaded builds a record for a PDF written to path.
func Downloaded(a Article, pdfURL, path string, size int64, hash string) DownloadRecord {
	return DownloadRecord{
		Title:       a.Title(),
		Journal:     a.Journal(),
		LandingURL:  a.URL(),
		Outcome:     OutcomeDownloaded,
		PDFURL:      pdfURL,
		Path:        path,
		SizeBytes:   size,
		ContentHash: hash,
	}
}

// SkippedNoPDFLink builds a record for a landing page without a PDF link.
func SkippedNoPDFLink(a Article) DownloadRecord {
	return DownloadRecord{
		Title:      a.Title(),
		Journal:    a.Journal(),
		LandingURL: a.URL(),
		Outcome:    OutcomeSkippedNoPDFLink,
		Reason:     "no pdf link found on landing page",
	}
}

// Failed builds a record for a download that failed with err.
func Failed(a Article, pdfURL string, err error) DownloadRecord {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return DownloadRecord{
		Title:      a.Title(),
		Journal:    a.Journal(),
		LandingURL: a.URL(),
		Outcome:    OutcomeFailed,
		Reason:     reason,
		PDFURL:     pdfURL,
	}
}

// DownloadTally counts download records by outcome.
type DownloadTally struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Tally counts records by outcome.
func Tally(records []DownloadRecord) DownloadTally {
	var t DownloadTally
	for _, r := range records {
		switch r.Outcome {
		case OutcomeDownloaded:
			t.Downloaded++
		case OutcomeSkippedNoPDFLink:
			t.Skipped++
		case OutcomeFailed:
			t.Failed++
		}
	}
	return t
}

package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all Prometheus metrics for a harvest run.
// Metrics are organized by stage: search, normalization, downloads and summaries.
// Everything is registered on the Registerer given to NewMetrics, so a short-lived
// CLI run can keep its own registry and dump it once at exit.
type Metrics struct {
	// SearchesTotal counts search requests, labeled by source and outcome.
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes search request duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// CredentialRetries counts searches re-issued with a new API key.
	CredentialRetries prometheus.Counter

	// ArticlesFound counts normalized articles returned by searches.
	ArticlesFound prometheus.Counter

	// ArticlesMalformed counts records skipped because normalization failed.
	ArticlesMalformed prometheus.Counter

	// AbstractsCollected counts articles carrying a non-empty abstract.
	AbstractsCollected prometheus.Counter

	// DownloadsTotal counts download attempts, labeled by outcome.
	DownloadsTotal *prometheus.CounterVec

	// DownloadDuration observes the time spent on one article download in seconds.
	DownloadDuration prometheus.Histogram

	// DownloadedBytes counts bytes of PDF content written to disk.
	DownloadedBytes prometheus.Counter

	// SummariesProduced counts summaries generated, labeled by ratio.
	SummariesProduced *prometheus.CounterVec

	// RunDuration observes the end-to-end duration of a harvest run in seconds.
	RunDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance and registers every collector with reg.
// The namespace is used as a prefix for all metric names. A nil reg falls back to
// prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of search requests by source and outcome",
		}, []string{"source", "outcome"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		CredentialRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_retries_total",
			Help:      "Total number of searches retried with a new API key",
		}),
		ArticlesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_found_total",
			Help:      "Total number of normalized articles returned by searches",
		}),
		ArticlesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_malformed_total",
			Help:      "Total number of records skipped because of missing fields",
		}),
		AbstractsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abstracts_collected_total",
			Help:      "Total number of non-empty abstracts collected",
		}),
		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of PDF download attempts by outcome",
		}, []string{"outcome"}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of a single article download in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DownloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Total bytes of PDF content written to disk",
		}),
		SummariesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_produced_total",
			Help:      "Total number of summaries produced by compression ratio",
		}, []string{"ratio"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of harvest runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
	}

	reg.MustRegister(
		m.SearchesTotal,
		m.SearchDuration,
		m.CredentialRetries,
		m.ArticlesFound,
		m.ArticlesMalformed,
		m.AbstractsCollected,
		m.DownloadsTotal,
		m.DownloadDuration,
		m.DownloadedBytes,
		m.SummariesProduced,
		m.RunDuration,
	)

	return m
}

// RecordSearchCompleted records a successful search with its article counts.
func (m *Metrics) RecordSearchCompleted(source string, found, malformed, withAbstract int, durationSeconds float64) {
	m.SearchesTotal.WithLabelValues(source, "success").Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.ArticlesFound.Add(float64(found))
	m.ArticlesMalformed.Add(float64(malformed))
	m.AbstractsCollected.Add(float64(withAbstract))
}

// RecordSearchFailed records a failed search. outcome is a short error class
// such as "invalid_credential" or "fatal".
func (m *Metrics) RecordSearchFailed(source, outcome string, durationSeconds float64) {
	m.SearchesTotal.WithLabelValues(source, outcome).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordCredentialRetry records a search re-issued with a new API key.
func (m *Metrics) RecordCredentialRetry() {
	m.CredentialRetries.Inc()
}

// RecordDownload records the outcome of one article download.
func (m *Metrics) RecordDownload(outcome string, sizeBytes int64, durationSeconds float64) {
	m.DownloadsTotal.WithLabelValues(outcome).Inc()
	m.DownloadDuration.Observe(durationSeconds)
	if sizeBytes > 0 {
		m.DownloadedBytes.Add(float64(sizeBytes))
	}
}

// RecordSummary records a produced summary at the given compression ratio.
func (m *Metrics) RecordSummary(ratio float64) {
	m.SummariesProduced.WithLabelValues(fmt.Sprintf("%.2f", ratio)).Inc()
}

// RecordRun records the end-to-end duration of a run.
func (m *Metrics) RecordRun(durationSeconds float64) {
	m.RunDuration.Observe(durationSeconds)
}

// WriteTextfile writes every metric gathered by g to path in the text exposition
// format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Package observability provides logging and metrics support for the paper
// harvester.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stderr",
//	})
//	logger = observability.WithRunContext(logger, runID)
//	logger.Info().Int("articles", n).Msg("search completed")
//
// # Metrics
//
// A harvest run is short-lived, so metrics live on a private registry and are
// written once at exit for the node exporter textfile collector:
//
//	reg := prometheus.NewRegistry()
//	metrics := observability.NewMetrics("paper_harvester", reg)
//	metrics.RecordDownload("downloaded", size, elapsed.Seconds())
//	_ = observability.WriteTextfile("harvester.prom", reg)
//
// # Standard Fields
//
//   - run_id: harvest run identifier
//   - query: rendered search query
//   - source: search API name
//   - title, journal: article being processed
//   - component: emitting component (fetcher, summary, pipeline)
package observability

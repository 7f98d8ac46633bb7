package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/helixir/paper-harvester/internal/config"
	"github.com/helixir/paper-harvester/internal/database"
	"github.com/helixir/paper-harvester/internal/export"
	"github.com/helixir/paper-harvester/internal/observability"
	"github.com/helixir/paper-harvester/internal/repository"
	"github.com/helixir/paper-harvester/internal/summary"
)

// env holds what every command needs: configuration, logging and metrics.
type env struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	in       io.Reader
	out      io.Writer
}

func newEnv(c *cli.Context) (*env, error) {
	path := c.String("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	}
	if c.Bool("verbose") {
		logCfg.Level = "debug"
	}

	e := &env{
		cfg:    cfg,
		logger: observability.NewLogger(logCfg).With().Str("command", c.Command.Name).Logger(),
		in:     c.App.Reader,
		out:    c.App.Writer,
	}
	if cfg.Metrics.Enabled {
		e.registry = prometheus.NewRegistry()
		e.metrics = observability.NewMetrics(cfg.Metrics.Namespace, e.registry)
	}
	return e, nil
}

func (e *env) files() export.Files {
	return export.Files{
		Dir:          e.cfg.Output.Dir,
		ArticleList:  e.cfg.Output.ArticleList,
		AbstractList: e.cfg.Output.AbstractList,
		Summary:      e.cfg.Output.Summary,
		Report:       e.cfg.Output.Report,
	}
}

func (e *env) ratios() summary.Ratios {
	return summary.Ratios{
		Default: e.cfg.Summary.DefaultRatio,
		Shorter: e.cfg.Summary.ShorterRatio,
		Longer:  e.cfg.Summary.LongerRatio,
	}
}

// flushMetrics writes the textfile when one is configured. Failures are logged.
func (e *env) flushMetrics() {
	if e.registry == nil || e.cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := observability.WriteTextfile(e.cfg.Metrics.TextfilePath, e.registry); err != nil {
		e.logger.Warn().Err(err).Msg("failed to write metrics")
	}
}

// openDatabase connects to PostgreSQL and, when configured, applies pending
// migrations. The caller closes the returned DB.
func (e *env) openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, &e.cfg.Database, e.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if !e.cfg.Database.MigrationAutoRun {
		return db, nil
	}

	migrator, err := database.NewMigrator(db, e.cfg.Database.MigrationPath, e.logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			e.logger.Warn().Err(closeErr).Msg("failed to close migrator")
		}
	}()
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	return db, nil
}

// openArchive returns the run archive, or nil when archiving is disabled or
// the database is unreachable. The returned close func is never nil.
func (e *env) openArchive(ctx context.Context) (repository.RunRepository, func()) {
	if !e.cfg.Database.Enabled {
		return nil, func() {}
	}
	db, err := e.openDatabase(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("run archive unavailable, continuing without it")
		return nil, func() {}
	}
	return repository.NewPgRunRepository(db).WithTransactor(db), db.Close
}

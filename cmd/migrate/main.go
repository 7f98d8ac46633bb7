// Package main provides a CLI tool for the run archive migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/helixir/paper-harvester/internal/config"
	"github.com/helixir/paper-harvester/internal/database"
	"github.com/helixir/paper-harvester/internal/observability"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "manage the run archive schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML config file"},
			&cli.StringFlag{Name: "path", Usage: "override the migrations directory"},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrator(func(m *database.Migrator, logger zerolog.Logger, _ *cli.Context) error {
					logger.Info().Msg("running all pending migrations")
					if err := m.Up(); err != nil {
						return fmt.Errorf("migrate up: %w", err)
					}
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back all migrations",
				Action: withMigrator(func(m *database.Migrator, logger zerolog.Logger, _ *cli.Context) error {
					logger.Warn().Msg("rolling back all migrations")
					if err := m.Down(); err != nil {
						return fmt.Errorf("migrate down: %w", err)
					}
					return nil
				}),
			},
			{
				Name:   "version",
				Usage:  "print the current migration version",
				Action: withMigrator(func(*database.Migrator, zerolog.Logger, *cli.Context) error { return nil }),
			},
			{
				Name:      "force",
				Usage:     "set the migration version without running migrations, to recover from a failed one",
				ArgsUsage: "<version>",
				Action: withMigrator(func(m *database.Migrator, _ zerolog.Logger, c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one version argument")
					}
					v, err := strconv.Atoi(c.Args().First())
					if err != nil || v < 0 {
						return fmt.Errorf("invalid version %q", c.Args().First())
					}
					if err := m.Force(v); err != nil {
						return fmt.Errorf("force version: %w", err)
					}
					return nil
				}),
			},
		},
	}
}

type migratorAction func(m *database.Migrator, logger zerolog.Logger, c *cli.Context) error

// withMigrator connects to the database, runs fn and prints the resulting version.
func withMigrator(fn migratorAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		var (
			cfg *config.Config
			err error
		)
		if path := c.String("config"); path != "" {
			cfg, err = config.LoadFile(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := observability.NewLogger(observability.LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			TimeFormat: time.RFC3339,
		}).With().Str("component", "migrate").Logger()

		migrationDir := cfg.Database.MigrationPath
		if p := c.String("path"); p != "" {
			migrationDir = p
		}

		ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
		defer cancel()

		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		migrator, err := database.NewMigrator(db, migrationDir, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := fn(migrator, logger, c); err != nil {
			return err
		}
		printVersion(migrator, logger)
		return nil
	}
}

// printVersion logs the current migration version.
func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}

//go:build integration

// Package dbtest starts a disposable PostgreSQL container with the archive
// schema applied, for integration tests.
package dbtest

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/paper-harvester/internal/config"
	"github.com/helixir/paper-harvester/internal/database"
)

// Image is the PostgreSQL image used by integration tests.
const Image = "postgres:16-alpine"

// MigrationsPath returns the absolute path of the repository migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// Start runs a PostgreSQL container, applies all migrations and returns a
// connected DB. Container and pool are released when the test ends.
func Start(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, Image,
		tcpostgres.WithDatabase("paper_harvester"),
		tcpostgres.WithUsername("harvester"),
		tcpostgres.WithPassword("harvester"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:           host,
		Port:           port.Int(),
		User:           "harvester",
		Password:       "harvester",
		Name:           "paper_harvester",
		SSLMode:        config.SSLModeDisable,
		MaxConns:       4,
		ConnectTimeout: 10 * time.Second,
	}

	db, err := database.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	m, err := database.NewMigrator(db, MigrationsPath(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	return db
}

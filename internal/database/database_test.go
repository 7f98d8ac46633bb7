package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/helixir/paper-harvester/internal/config"
)

// mockDBTX checks at compile time that the DBTX method set is satisfiable.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

var _ DBTX = (*mockDBTX)(nil)

func testDatabaseConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:              "localhost",
		Port:              5432,
		User:              "harvester",
		Password:          "secret",
		Name:              "paper_harvester",
		SSLMode:           config.SSLModeDisable,
		MaxConns:          8,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   10 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    3 * time.Second,
	}
}

func TestPoolConfig(t *testing.T) {
	t.Run("applies pool settings", func(t *testing.T) {
		pc, err := PoolConfig(testDatabaseConfig())
		require.NoError(t, err)

		assert.Equal(t, int32(8), pc.MaxConns)
		assert.Equal(t, int32(2), pc.MinConns)
		assert.Equal(t, time.Hour, pc.MaxConnLifetime)
		assert.Equal(t, 10*time.Minute, pc.MaxConnIdleTime)
		assert.Equal(t, time.Minute, pc.HealthCheckPeriod)
		assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
		assert.Equal(t, "localhost", pc.ConnConfig.Host)
		assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
		assert.Equal(t, "paper_harvester", pc.ConnConfig.Database)
		assert.Equal(t, "harvester", pc.ConnConfig.User)
		assert.Equal(t, "secret", pc.ConnConfig.Password)
	})

	t.Run("zero values keep pgxpool defaults", func(t *testing.T) {
		cfg := testDatabaseConfig()
		cfg.MaxConns = 0
		cfg.MinConns = 0
		cfg.HealthCheckPeriod = 0

		pc, err := PoolConfig(cfg)
		require.NoError(t, err)
		assert.Positive(t, pc.MaxConns)
		assert.Equal(t, int32(0), pc.MinConns)
		assert.Positive(t, pc.HealthCheckPeriod)
	})

	t.Run("special characters in credentials survive parsing", func(t *testing.T) {
		cfg := testDatabaseConfig()
		cfg.User = "user@domain"
		cfg.Password = "p@ss/w:rd"

		pc, err := PoolConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, "user@domain", pc.ConnConfig.User)
		assert.Equal(t, "p@ss/w:rd", pc.ConnConfig.Password)
	})

	t.Run("invalid ssl mode is rejected", func(t *testing.T) {
		cfg := testDatabaseConfig()
		cfg.SSLMode = "sometimes"

		_, err := PoolConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse database config")
	})
}

func TestHealthStatus(t *testing.T) {
	t.Run("json omits empty error", func(t *testing.T) {
		data, err := json.Marshal(HealthStatus{Status: "healthy", MaxConns: 4})
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"error"`)
		assert.Contains(t, string(data), `"status":"healthy"`)
	})

	t.Run("yaml carries error", func(t *testing.T) {
		data, err := yaml.Marshal(HealthStatus{Status: "unhealthy", Error: "connection refused"})
		require.NoError(t, err)
		assert.Contains(t, string(data), "error: connection refused")
	})

	t.Run("healthy", func(t *testing.T) {
		assert.True(t, HealthStatus{Status: "healthy"}.Healthy())
		assert.False(t, HealthStatus{Status: "unhealthy"}.Healthy())
	})
}

func TestNew_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	// 192.0.2.1 is TEST-NET-1 (RFC 5737) and never routable.
	cfg := testDatabaseConfig()
	cfg.Host = "192.0.2.1"
	cfg.MinConns = 0
	cfg.ConnectTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestDB_CloseNilPool(t *testing.T) {
	assert.NotPanics(t, func() {
		(&DB{}).Close()
	})
}

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("nil database", func(t *testing.T) {
		m, err := NewMigrator(nil, "migrations", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("nil pool", func(t *testing.T) {
		m, err := NewMigrator(&DB{}, "migrations", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database pool not initialized")
	})
}

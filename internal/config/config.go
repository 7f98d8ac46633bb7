// Package config provides configuration management for the paper harvester.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// EnvPrefix is the prefix of every environment variable the harvester reads.
const EnvPrefix = "HARVESTER"

// Config holds all configuration for the paper harvester.
type Config struct {
	// Springer contains search API settings.
	Springer SpringerConfig `mapstructure:"springer"`
	// Download contains landing page and PDF retrieval settings.
	Download DownloadConfig `mapstructure:"download"`
	// Summary contains compression ratios for the summary loop.
	Summary SummaryConfig `mapstructure:"summary"`
	// Output contains file locations for persisted results.
	Output OutputConfig `mapstructure:"output"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus textfile settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Database contains settings for the optional PostgreSQL archive.
	Database DatabaseConfig `mapstructure:"database"`
}

// SpringerConfig holds search API configuration.
type SpringerConfig struct {
	// APIKey is the API key (loaded from HARVESTER_SPRINGER_API_KEY only).
	APIKey string `mapstructure:"-"`
	// BaseURL is the OpenAccess JSON endpoint.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds each search request.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
	// MaxCredentialAttempts bounds how many API keys are tried before giving up.
	MaxCredentialAttempts int `mapstructure:"max_credential_attempts"`
	// DefaultMaxResults is offered when the user gives no result count.
	DefaultMaxResults int `mapstructure:"default_max_results"`
}

// DownloadConfig holds PDF download configuration.
type DownloadConfig struct {
	// Timeout bounds each landing page and PDF request.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxSize is the largest PDF accepted, in bytes.
	MaxSize int64 `mapstructure:"max_size"`
	// Workers is the number of articles downloaded at once. 1 keeps API order strictly sequential.
	Workers int `mapstructure:"workers"`
	// RateLimit is the maximum landing page requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// UserAgent is sent with landing page and PDF requests.
	UserAgent string `mapstructure:"user_agent"`
	// RelativeHost completes PDF links that start with "/a".
	RelativeHost string `mapstructure:"relative_host"`
	// RequirePDFContentType rejects responses not served as application/pdf.
	RequirePDFContentType bool `mapstructure:"require_pdf_content_type"`
	// AllowPrivateNetworks disables the private address guard.
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"`
}

// SummaryConfig holds the compression ratios of the summary loop.
type SummaryConfig struct {
	// DefaultRatio is used for the first summary.
	DefaultRatio float64 `mapstructure:"default_ratio"`
	// ShorterRatio is used when the user asks for a shorter summary.
	ShorterRatio float64 `mapstructure:"shorter_ratio"`
	// LongerRatio is used when the user asks for a longer summary.
	LongerRatio float64 `mapstructure:"longer_ratio"`
}

// OutputConfig holds output file locations.
type OutputConfig struct {
	// Dir is the directory every output file and journal folder is written under.
	Dir string `mapstructure:"dir"`
	// ArticleList is the CSV file name for article metadata.
	ArticleList string `mapstructure:"article_list"`
	// AbstractList is the text file name for collected abstracts.
	AbstractList string `mapstructure:"abstract_list"`
	// Summary is the text file name for the final summary.
	Summary string `mapstructure:"summary"`
	// Report is the YAML file name for the run report. Empty disables it.
	Report string `mapstructure:"report"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
	// TextfilePath is where metrics are written at exit. Empty disables writing.
	TextfilePath string `mapstructure:"textfile_path"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Enabled turns on archiving of runs in PostgreSQL.
	Enabled bool `mapstructure:"enabled"`
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from HARVESTER_DATABASE_PASSWORD only).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations before archiving a run.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading path instead of searching
// for harvester.yaml when path is not empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/paper-harvester")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Springer.APIKey = os.Getenv(EnvPrefix + "_SPRINGER_API_KEY")
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Springer defaults
	v.SetDefault("springer.base_url", "https://api.springernature.com/openaccess/json")
	v.SetDefault("springer.timeout", "30s")
	v.SetDefault("springer.rate_limit", 5.0)
	v.SetDefault("springer.max_retries", 3)
	v.SetDefault("springer.max_credential_attempts", 3)
	v.SetDefault("springer.default_max_results", 10)

	// Download defaults
	v.SetDefault("download.timeout", "30s")
	v.SetDefault("download.max_size", 100*1024*1024)
	v.SetDefault("download.workers", 1)
	v.SetDefault("download.rate_limit", 2.0)
	v.SetDefault("download.user_agent", "Mozilla/5.0 (compatible; Helixir-PaperHarvester/1.0)")
	v.SetDefault("download.relative_host", "https://www.nature.com")
	v.SetDefault("download.require_pdf_content_type", false)
	v.SetDefault("download.allow_private_networks", false)

	// Summary defaults
	v.SetDefault("summary.default_ratio", 0.20)
	v.SetDefault("summary.shorter_ratio", 0.05)
	v.SetDefault("summary.longer_ratio", 0.50)

	// Output defaults
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.article_list", "Article_list.csv")
	v.SetDefault("output.abstract_list", "abstract_list.txt")
	v.SetDefault("output.summary", "summary.txt")
	v.SetDefault("output.report", "harvest_report.yaml")

	// Logging defaults. Prompts go to stdout, so logs default to stderr.
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "paper_harvester")
	v.SetDefault("metrics.textfile_path", "")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "harvester")
	v.SetDefault("database.name", "paper_harvester")
	// Default to "require" for production security. Use HARVESTER_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate Springer config
	if c.Springer.BaseURL == "" {
		return fmt.Errorf("springer base_url is required")
	}
	if c.Springer.Timeout <= 0 {
		return fmt.Errorf("springer timeout must be positive")
	}
	if c.Springer.MaxCredentialAttempts < 1 {
		return fmt.Errorf("springer max_credential_attempts must be at least 1")
	}
	if c.Springer.DefaultMaxResults < 1 || c.Springer.DefaultMaxResults > 100 {
		return fmt.Errorf("springer default_max_results must be between 1 and 100, got %d", c.Springer.DefaultMaxResults)
	}

	// Validate download config
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("download timeout must be positive")
	}
	if c.Download.Workers < 1 {
		return fmt.Errorf("download workers must be at least 1, got %d", c.Download.Workers)
	}
	if c.Download.MaxSize <= 0 {
		return fmt.Errorf("download max_size must be positive")
	}

	// Validate summary ratios
	ratios := map[string]float64{
		"default_ratio": c.Summary.DefaultRatio,
		"shorter_ratio": c.Summary.ShorterRatio,
		"longer_ratio":  c.Summary.LongerRatio,
	}
	for name, r := range ratios {
		if r <= 0 || r > 1 {
			return fmt.Errorf("summary %s must be in (0, 1], got %v", name, r)
		}
	}

	// Validate output files
	if c.Output.ArticleList == "" || c.Output.AbstractList == "" || c.Output.Summary == "" {
		return fmt.Errorf("output file names are required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate database config only when archiving is on.
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	}

	return nil
}

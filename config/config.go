package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/kosarica/import-service/internal/pipeline"
	"github.com/kosarica/import-service/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. IMPORT_SERVICE_SERVER_PORT
const EnvPrefix = "IMPORT_SERVICE"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Import    ImportConfig     `mapstructure:"import"`
	Worker    WorkerConfig     `mapstructure:"worker"`
	Sweeper   SweeperConfig    `mapstructure:"sweeper"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	APIKey         string        `mapstructure:"api_key"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// DatabaseConfig holds database connection configuration. An empty URL
// runs the service on in-memory stores.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"base_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// ImportConfig holds the service-wide import limits
type ImportConfig struct {
	MaxFileSize              int64   `mapstructure:"max_file_size"`
	DefaultChunkSize         int     `mapstructure:"default_chunk_size"`
	MinChunkSize             int     `mapstructure:"min_chunk_size"`
	MaxChunkSize             int     `mapstructure:"max_chunk_size"`
	SampleRows               int     `mapstructure:"sample_rows"`
	FailedRowThreshold       float64 `mapstructure:"failed_row_threshold"`
	LowCompletenessThreshold float64 `mapstructure:"low_completeness_threshold"`
}

// WorkerConfig sizes the stage worker pool
type WorkerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Concurrency int           `mapstructure:"concurrency"`
	BatchSize   int           `mapstructure:"batch_size"`
	PollDelay   time.Duration `mapstructure:"poll_delay"`
}

// SweeperConfig controls task queue maintenance
type SweeperConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	StuckAfter    time.Duration `mapstructure:"stuck_after"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// Options converts the import limits for the pipeline runner
func (c ImportConfig) Options() pipeline.Options {
	return pipeline.Options{
		MaxFileSize:              c.MaxFileSize,
		DefaultChunkSize:         c.DefaultChunkSize,
		MinChunkSize:             c.MinChunkSize,
		MaxChunkSize:             c.MaxChunkSize,
		SampleRows:               c.SampleRows,
		FailedRowThreshold:       c.FailedRowThreshold,
		LowCompletenessThreshold: c.LowCompletenessThreshold,
	}
}

// Validate rejects limits the pipeline cannot work with
func (c *Config) Validate() error {
	im := c.Import
	if im.MinChunkSize < 1 || im.MinChunkSize > im.MaxChunkSize {
		return fmt.Errorf("import.min_chunk_size must be in [1, %d]", im.MaxChunkSize)
	}
	if im.DefaultChunkSize < im.MinChunkSize || im.DefaultChunkSize > im.MaxChunkSize {
		return fmt.Errorf("import.default_chunk_size must be in [%d, %d]", im.MinChunkSize, im.MaxChunkSize)
	}
	if im.MaxFileSize <= 0 {
		return errors.New("import.max_file_size must be positive")
	}
	if c.Storage.Type != "local" {
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}
	return nil
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		// Only a missing file in the default search path is optional
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// loadEnvFile loads the first .env file found
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			return loadDotEnvFile(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables that are
// not already set
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds the conventional unprefixed variables
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("server.api_key", EnvPrefix+"_SERVER_API_KEY", "INTERNAL_API_KEY")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("storage.base_path", EnvPrefix+"_STORAGE_BASE_PATH", "STORAGE_PATH")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/imports")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	opts := pipeline.DefaultOptions()
	v.SetDefault("import.max_file_size", opts.MaxFileSize)
	v.SetDefault("import.default_chunk_size", opts.DefaultChunkSize)
	v.SetDefault("import.min_chunk_size", opts.MinChunkSize)
	v.SetDefault("import.max_chunk_size", opts.MaxChunkSize)
	v.SetDefault("import.sample_rows", opts.SampleRows)
	v.SetDefault("import.failed_row_threshold", opts.FailedRowThreshold)
	v.SetDefault("import.low_completeness_threshold", opts.LowCompletenessThreshold)

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.batch_size", 1)
	v.SetDefault("worker.poll_delay", time.Second)

	v.SetDefault("sweeper.interval", 5*time.Minute)
	v.SetDefault("sweeper.stuck_after", 15*time.Minute)
	v.SetDefault("sweeper.retention_days", 7)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "import-service")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.export_interval", 30*time.Second)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

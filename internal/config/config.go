// Package config resolves settings from defaults, the environment (optionally seeded from a
// .env file) and an optional YAML file, in that order of increasing precedence.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"leadfinder/internal/cache"
	"leadfinder/internal/database"
	"leadfinder/internal/places"
	"leadfinder/internal/search"
)

const DefaultExclusionFile = "data/exclusions.txt"

// Config is everything the CLI needs besides the search itself.
type Config struct {
	APIKey        string        `yaml:"gcp_api_key"`
	ExclusionFile string        `yaml:"exclusion_file"`
	LogLevel      string        `yaml:"log_level"`
	DetailWorkers int           `yaml:"detail_workers"`
	CellWorkers   int           `yaml:"cell_workers"`
	PageDelay     time.Duration `yaml:"page_delay"`
	TokenRetries  int           `yaml:"token_retries"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	S3Bucket string `yaml:"s3_bucket"`

	Database database.DBConfig `yaml:"database"`
}

// Load reads envFile (missing is fine), then the environment, then yamlPath if non-empty.
// It fails when no API key ends up configured.
func Load(envFile, yamlPath string) (*Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:        os.Getenv("GCP_API_KEY"),
		ExclusionFile: getEnvOrDefault("LEADS_EXCLUSION_FILE", DefaultExclusionFile),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		Database:      LoadDatabaseConfig(),
	}

	var err error
	if cfg.DetailWorkers, err = getEnvInt("DETAIL_WORKERS", search.DefaultDetailWorkers); err != nil {
		return nil, err
	}
	if cfg.CellWorkers, err = getEnvInt("CELL_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.PageDelay, err = getEnvDuration("PAGE_DELAY", search.DefaultPageDelay); err != nil {
		return nil, err
	}
	if cfg.RedisTTL, err = getEnvDuration("REDIS_TTL", cache.DefaultTTL); err != nil {
		return nil, err
	}
	if cfg.TokenRetries, err = getEnvInt("TOKEN_RETRIES", search.DefaultTokenRetries); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", places.DefaultTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: set GCP_API_KEY in the environment, .env or the config file", places.ErrMissingAPIKey)
	}
	if c.DetailWorkers < 1 {
		return fmt.Errorf("detail workers must be at least 1, got %d", c.DetailWorkers)
	}
	if c.CellWorkers < 1 {
		return fmt.Errorf("cell workers must be at least 1, got %d", c.CellWorkers)
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay must not be negative, got %s", c.PageDelay)
	}
	if c.TokenRetries < 0 {
		return fmt.Errorf("token retries must not be negative, got %d", c.TokenRetries)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// CacheEnabled reports whether a Redis address is configured.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// DatabaseEnabled reports whether Oracle credentials are configured.
func (c *Config) DatabaseEnabled() bool { return c.Database.Username != "" }

// Logger builds a console logger at the configured level.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// LoadDatabaseConfig loads database configuration from environment variables
func LoadDatabaseConfig() database.DBConfig {
	return database.DBConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvOrDefault("DB_PORT", "1521"),
		Service:        getEnvOrDefault("DB_SERVICE", "XE"),
		Username:       getEnvOrDefault("DB_USERNAME", ""),
		Password:       getEnvOrDefault("DB_PASSWORD", ""),
		WalletLocation: getEnvOrDefault("DB_WALLET_LOCATION", ""),
	}
}

// LoadEnvFile reads KEY=VALUE lines from filename into the environment.
// Variables already set are left alone.
func LoadEnvFile(filename string) error {
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

		if idx := strings.Index(line, "="); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.TrimSpace(line[idx+1:])

			// Remove quotes if present
			if len(value) >= 2 && (value[0] == '"' && value[len(value)-1] == '"') {
				value = value[1 : len(value)-1]
			}

			if os.Getenv(key) == "" {
				if err := os.Setenv(key, value); err != nil {
					return fmt.Errorf("set %s: %w", key, err)
				}
			}
		}
	}

	return scanner.Err()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

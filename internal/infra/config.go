package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"order_cache/internal/cache"
	"order_cache/internal/domain"
)

const envPrefix = "ORDERCACHE_"

// Config holds every application setting. LoadConfig reads the yaml file first,
// then environment variables (optionally from .env) override it.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Cache struct {
		Strategy    string `yaml:"strategy"`
		PruneFilled bool   `yaml:"prune_filled"`
		InboxSize   int    `yaml:"inbox_size"`
	} `yaml:"cache"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
		// Retention drops journaled reports older than this; 0 keeps them forever.
		Retention         time.Duration `yaml:"retention"`
		RetentionInterval time.Duration `yaml:"retention_interval"`
	} `yaml:"storage"`

	API struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when a key is absent from the file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "order-cache"
	cfg.App.Version = "dev"
	cfg.Cache.Strategy = string(cache.StrategyVector)
	cfg.Cache.InboxSize = 1024
	cfg.Storage.Path = "data/match_reports.db"
	cfg.Storage.RetentionInterval = time.Hour
	cfg.API.Addr = ":8080"
	cfg.API.AllowedOrigins = []string{"*"}
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads path on top of DefaultConfig, applies environment overrides and validates.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if _, err := cache.ParseStrategy(c.Cache.Strategy); err != nil {
		return &domain.ConfigError{Field: "cache.strategy", Err: err}
	}
	if c.Cache.InboxSize <= 0 {
		return &domain.ConfigError{Field: "cache.inbox_size", Err: errors.New("must be positive")}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("required when storage is enabled")}
	}
	if c.Storage.Retention < 0 {
		return &domain.ConfigError{Field: "storage.retention", Err: errors.New("must not be negative")}
	}
	if c.Storage.Retention > 0 && c.Storage.RetentionInterval <= 0 {
		return &domain.ConfigError{Field: "storage.retention_interval", Err: errors.New("must be positive when retention is set")}
	}
	if c.API.Addr == "" {
		return &domain.ConfigError{Field: "api.addr", Err: errors.New("must not be empty")}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// overrideWithEnv replaces settings with ORDERCACHE_* variables when set.
func overrideWithEnv(cfg *Config) error {
	if v := getenv("STRATEGY"); v != "" {
		cfg.Cache.Strategy = v
	}
	if v := getenv("PRUNE_FILLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &domain.ConfigError{Field: envPrefix + "PRUNE_FILLED", Err: err}
		}
		cfg.Cache.PruneFilled = b
	}
	if v := getenv("STORAGE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &domain.ConfigError{Field: envPrefix + "STORAGE_ENABLED", Err: err}
		}
		cfg.Storage.Enabled = b
	}
	if v := getenv("STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := getenv("STORAGE_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &domain.ConfigError{Field: envPrefix + "STORAGE_RETENTION", Err: err}
		}
		cfg.Storage.Retention = d
	}
	if v := getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = strings.Split(v, ",")
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := getenv("LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

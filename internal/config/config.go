package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config carries every tunable of the service. YAML keys match the field
// tags and IMAGECONV_* environment variables override the file.
type Config struct {
	Addr                   string `yaml:"addr"`
	DataDir                string `yaml:"data_dir"`
	Workers                int    `yaml:"workers"`
	MaxUploadMB            int64  `yaml:"max_upload_mb"`
	CleanupIntervalSeconds int    `yaml:"cleanup_interval_seconds"`
	SessionTTLSeconds      int    `yaml:"session_ttl_seconds"`
	LogLevel               string `yaml:"log_level"`
	GinMode                string `yaml:"gin_mode"`
}

// Default listens on :8080, keeps data under ./data, sizes the worker pool
// off the CPU count and reclaims sessions older than an hour every five
// minutes.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		DataDir:                "data",
		Workers:                0,
		MaxUploadMB:            100,
		CleanupIntervalSeconds: 300,
		SessionTTLSeconds:      3600,
		LogLevel:               "info",
		GinMode:                "release",
	}
}

// Load layers the effective configuration: defaults, then the YAML file at
// path when it exists, then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("IMAGECONV_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("IMAGECONV_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	envInt("IMAGECONV_WORKERS", &c.Workers)
	envInt64("IMAGECONV_MAX_UPLOAD_MB", &c.MaxUploadMB)
	envInt("IMAGECONV_CLEANUP_INTERVAL_SECONDS", &c.CleanupIntervalSeconds)
	envInt("IMAGECONV_SESSION_TTL_SECONDS", &c.SessionTTLSeconds)
	if v := os.Getenv("IMAGECONV_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("IMAGECONV_GIN_MODE"); v != "" {
		c.GinMode = v
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("%w: max_upload_mb must be at least 1", ErrInvalidConfig)
	}
	if c.CleanupIntervalSeconds < 1 {
		return fmt.Errorf("%w: cleanup_interval_seconds must be at least 1", ErrInvalidConfig)
	}
	if c.SessionTTLSeconds < 1 {
		return fmt.Errorf("%w: session_ttl_seconds must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func (c Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// SlogLevel maps the configured log level onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

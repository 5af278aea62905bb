package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs read before koanf runs.
const (
	envPrefix     = "FOOTPRINT_"
	envConfigFile = "FOOTPRINT_CONFIG"
	envDotenvFile = "FOOTPRINT_DOTENV"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FOOTPRINT_CONFIG is set
//  3. env (prefix FOOTPRINT_), after loading .env (or FOOTPRINT_DOTENV) when present
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Map env keys like FOOTPRINT_QUEUE_SIZE -> queue_size (flat keys).
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	// The config/dotenv selectors are not config keys.
	k.Delete("config")
	k.Delete("dotenv")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotenv exports variables from a .env file without overriding the
// real environment. A missing default file is not an error.
func loadDotenv() error {
	path := os.Getenv(envDotenvFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotenv
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	switch c.StorageDriver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.StoragePath) == "" {
			return invalid("storage_path is required for the %s driver", c.StorageDriver)
		}
	case DriverPostgres:
		if strings.TrimSpace(c.StorageDSN) == "" {
			return invalid("storage_dsn is required for the postgres driver")
		}
	default:
		return invalid("unknown storage_driver %q", c.StorageDriver)
	}
	if c.DedupeWindow <= 0 {
		return invalid("dedupe_window must be positive")
	}
	if c.VisitorWindow <= 0 {
		return invalid("visitor_window must be positive")
	}
	if c.MaxPageViews < 0 || c.MaxEvents < 0 || c.MaxHeatmapSamples < 0 {
		return invalid("collection caps must not be negative")
	}
	if c.GeoTimeoutMS < 0 {
		return invalid("geo_timeout_ms must not be negative")
	}
	if c.GeoEnabled && strings.TrimSpace(c.GeoBaseURL) == "" {
		return invalid("geo_base_url is required when geo_enabled is set")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return invalid("unknown timezone %q", c.Timezone)
	}
	return nil
}

// Package config loads pipeline settings from registry.yml and
// FAA_REGISTRY_* environment variables. Subcommand flags override
// whatever is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"faa_registry/internal/normalize"
	"faa_registry/internal/publish"
	"faa_registry/internal/resolve"
)

// Config is the full pipeline configuration.
type Config struct {
	DataRoot  string          `mapstructure:"data_root"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Resolve   ResolveConfig   `mapstructure:"resolve"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Announce  AnnounceConfig  `mapstructure:"announce"`
}

// NormalizeConfig controls the normalization stage.
type NormalizeConfig struct {
	ErrorThreshold float64 `mapstructure:"error_threshold"`
	Workers        int     `mapstructure:"workers"`
}

// ResolveConfig controls reference-coverage reporting.
type ResolveConfig struct {
	CoverageFloor float64 `mapstructure:"coverage_floor"`
}

// PublishConfig controls artifact publication.
type PublishConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// WarehouseConfig selects and configures the mirror destination.
type WarehouseConfig struct {
	// Driver is "clickhouse" or "postgres"; empty disables mirroring.
	Driver     string           `mapstructure:"driver"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// AnnounceConfig configures the publish-complete announcement.
type AnnounceConfig struct {
	// URL is the NATS server; empty disables announcements.
	URL string `mapstructure:"url"`
}

// Load reads registry.yml from the working directory or ~/.faa_registry,
// applies FAA_REGISTRY_* environment overrides, and falls back to defaults
// when no file exists.
func Load() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	// Set defaults
	v.SetDefault("data_root", filepath.Join(home, ".faa_registry", "data"))
	v.SetDefault("normalize.error_threshold", normalize.DefaultErrorThreshold)
	v.SetDefault("normalize.workers", 0)
	v.SetDefault("resolve.coverage_floor", resolve.DefaultCoverageFloor)
	v.SetDefault("publish.lock_ttl", publish.DefaultLockTTL)
	v.SetDefault("warehouse.driver", "")
	v.SetDefault("warehouse.clickhouse.host", "localhost")
	v.SetDefault("warehouse.clickhouse.port", 9000)
	v.SetDefault("warehouse.clickhouse.database", "default")
	v.SetDefault("warehouse.clickhouse.user", "default")
	v.SetDefault("warehouse.clickhouse.password", "")
	v.SetDefault("warehouse.postgres.host", "localhost")
	v.SetDefault("warehouse.postgres.port", 5432)
	v.SetDefault("warehouse.postgres.database", "registry")
	v.SetDefault("warehouse.postgres.user", "registry")
	v.SetDefault("warehouse.postgres.password", "")
	v.SetDefault("announce.url", "")

	// Set config name and paths
	v.SetConfigName("registry")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(home, ".faa_registry"))

	// Enable environment variable support
	v.SetEnvPrefix("FAA_REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RawDir is where the fetch step leaves one snapshot's extract files.
func (c *Config) RawDir(snapshot string) string {
	return filepath.Join(c.DataRoot, "raw", snapshot)
}

// NormalizedDir is where one generation's normalized tables land.
func (c *Config) NormalizedDir(generation string) string {
	return filepath.Join(c.DataRoot, "normalized", generation)
}

// PublishRoot is the directory generations are published under.
func (c *Config) PublishRoot() string {
	return filepath.Join(c.DataRoot, "publish")
}

func validateConfig(cfg *Config) error {
	if cfg.DataRoot == "" {
		return fmt.Errorf("data_root must not be empty")
	}
	if t := cfg.Normalize.ErrorThreshold; t < 0 || t > 1 {
		return fmt.Errorf("normalize.error_threshold must be within [0, 1], got %v", t)
	}
	if f := cfg.Resolve.CoverageFloor; f < 0 || f > 1 {
		return fmt.Errorf("resolve.coverage_floor must be within [0, 1], got %v", f)
	}
	switch cfg.Warehouse.Driver {
	case "", "clickhouse", "postgres":
	default:
		return fmt.Errorf("warehouse.driver must be clickhouse or postgres, got: %s", cfg.Warehouse.Driver)
	}
	return nil
}

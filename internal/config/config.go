// Package config loads the flightgraph YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Benny93/flightgraph/internal/analytics"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "flightgraph.yaml"

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the top-level configuration.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Routing RoutingConfig `yaml:"routing"`
	Louvain LouvainConfig `yaml:"louvain"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DataConfig locates the OpenFlights files.
type DataConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	Airports string `yaml:"airports" validate:"required"`
	Airlines string `yaml:"airlines" validate:"required"`
	Routes   string `yaml:"routes" validate:"required"`

	// Ignore holds gitignore-style patterns of files the watcher skips.
	Ignore []string `yaml:"ignore,omitempty"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	BatchSize int `yaml:"batch_size" validate:"gte=1"`
	Workers   int `yaml:"workers" validate:"gte=1,lte=256"`
}

// RoutingConfig holds path search defaults.
type RoutingConfig struct {
	MaxHops int `yaml:"max_hops" validate:"gte=0,lte=32"`
}

// LouvainConfig holds community detection settings.
type LouvainConfig struct {
	MaxPhases     int     `yaml:"max_phases" validate:"gte=1"`
	MaxIterations int     `yaml:"max_iterations" validate:"gte=1"`
	Threshold     float64 `yaml:"threshold" validate:"gte=0"`
	Resolution    float64 `yaml:"resolution" validate:"gt=0"`
}

// StorageConfig locates the snapshot store. An empty Dir keeps snapshots in
// memory only.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig tunes the query result cache. A zero TTL disables caching.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" validate:"gte=0"`
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	Env   string `yaml:"env" validate:"oneof=development production"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig sets the Prometheus listen address. Empty disables the
// endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := analytics.DefaultCommunityOptions()
	return Config{
		Data: DataConfig{
			Dir:      "data",
			Airports: "airports.dat",
			Airlines: "airlines.dat",
			Routes:   "routes.dat",
		},
		Ingest: IngestConfig{
			BatchSize: 1000,
			Workers:   4,
		},
		Routing: RoutingConfig{
			MaxHops: 3,
		},
		Louvain: LouvainConfig{
			MaxPhases:     opts.MaxPhases,
			MaxIterations: opts.MaxIterations,
			Threshold:     opts.Threshold,
			Resolution:    opts.Resolution,
		},
		Storage: StorageConfig{
			Dir: ".flightgraph",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Env:   "production",
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. A missing file is not an error when path is the default name.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && filepath.Base(path) == DefaultFileName:
		return cfg, cfg.Validate()
	case err != nil:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// AirportsPath returns the airports file path.
func (d DataConfig) AirportsPath() string { return filepath.Join(d.Dir, d.Airports) }

// AirlinesPath returns the airlines file path.
func (d DataConfig) AirlinesPath() string { return filepath.Join(d.Dir, d.Airlines) }

// RoutesPath returns the routes file path.
func (d DataConfig) RoutesPath() string { return filepath.Join(d.Dir, d.Routes) }

// BadgerDir returns the badger directory, or "" for in-memory storage.
func (s StorageConfig) BadgerDir() string {
	if s.Dir == "" {
		return ""
	}
	return filepath.Join(s.Dir, "badger")
}

// CommunityOptions converts the Louvain settings. limit caps returned rows.
func (l LouvainConfig) CommunityOptions(limit int) analytics.CommunityOptions {
	return analytics.CommunityOptions{
		MaxPhases:     l.MaxPhases,
		MaxIterations: l.MaxIterations,
		Threshold:     l.Threshold,
		Resolution:    l.Resolution,
		Limit:         limit,
	}
}

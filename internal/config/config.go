// Package config provides configuration types and defaults for the
// gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/obarth/ogate/internal/protocol"
	"github.com/obarth/ogate/internal/tracing"
)

// Config holds all gateway configuration options.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`

	// Platform names the hosting platform. Some platforms need their
	// objects primed before first use; see PrimeDomain.
	Platform string `mapstructure:"platform"`

	// PrimeDomain is the object domain warmed at startup on platforms
	// that require priming.
	PrimeDomain string `mapstructure:"prime_domain"`

	// Catalog is an optional path to a YAML object catalog loaded into
	// its own registry at startup.
	Catalog string `mapstructure:"catalog"`

	// Limits bounds single-request conversion.
	Limits LimitsConfig `mapstructure:"limits"`

	// Bulk bounds conversion for batched body requests.
	Bulk LimitsConfig `mapstructure:"bulk"`

	// History configures attribute history tracking.
	History HistoryConfig `mapstructure:"history"`

	// Tracing configures span export.
	Tracing tracing.Config `mapstructure:"tracing"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`
}

// LimitsConfig mirrors protocol.Limits in configuration.
type LimitsConfig struct {
	MaxDepth          int `mapstructure:"max_depth"`
	MaxCollectionSize int `mapstructure:"max_collection_size"`
	MaxObjects        int `mapstructure:"max_objects"`
}

// Limits converts to the protocol form. Zero fields disable the bound.
func (l LimitsConfig) Limits() protocol.Limits {
	return protocol.Limits{
		MaxDepth:          l.MaxDepth,
		MaxCollectionSize: l.MaxCollectionSize,
		MaxObjects:        l.MaxObjects,
	}
}

// HistoryConfig configures the attribute history store.
type HistoryConfig struct {
	// Enabled turns history tracking on.
	Enabled bool `mapstructure:"enabled"`

	// Retention is how long a series survives without new samples.
	Retention time.Duration `mapstructure:"retention"`

	// MaxEntries bounds each series.
	MaxEntries int `mapstructure:"max_entries"`

	// Path, when set, archives every sample to a SQLite database.
	Path string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	defaults := protocol.DefaultLimits()
	bulk := protocol.BulkLimits()
	return Config{
		Addr:        "localhost:8778",
		Platform:    "",
		PrimeDomain: "runtime",
		Limits: LimitsConfig{
			MaxDepth:          defaults.MaxDepth,
			MaxCollectionSize: defaults.MaxCollectionSize,
			MaxObjects:        defaults.MaxObjects,
		},
		Bulk: LimitsConfig{
			MaxDepth:          bulk.MaxDepth,
			MaxCollectionSize: bulk.MaxCollectionSize,
			MaxObjects:        bulk.MaxObjects,
		},
		History: HistoryConfig{
			Enabled:    true,
			Retention:  time.Hour,
			MaxEntries: 10,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Dir returns the gateway's configuration directory, creating it if
// needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, "ogate")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

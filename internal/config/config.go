// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package config loads engine configuration from YAML files and command
// line flags, flags winning.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the recognized engine options.
type Config struct {
	// UnlockDurationHours bounds the lifetime of capability grants.
	// Zero disables expiration.
	UnlockDurationHours float64 `koanf:"unlock_duration_hours"`

	// InfluenceRadiusMeters is the distance within which a standalone
	// entity benefits from a nearby successful breach.
	InfluenceRadiusMeters float64 `koanf:"influence_radius_meters"`

	// PenaltyDurationMinutes bounds the lifetime of failure locks.
	// Zero disables expiration.
	PenaltyDurationMinutes float64 `koanf:"penalty_duration_minutes"`

	// RequireAllCategories makes device accessibility require every
	// category the device class supports instead of any one.
	RequireAllCategories bool `koanf:"require_all_categories"`

	// MaxBreachRecords bounds the spatial influence index.
	MaxBreachRecords int `koanf:"max_breach_records"`

	// PruneCount is how many oldest records an overflow evicts.
	PruneCount int `koanf:"prune_count"`

	// LogFormat selects "json" or "text" log output.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr is the metrics/health HTTP address; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// StorePath is the SQLite database path; empty disables persistence.
	StorePath string `koanf:"store_path"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		UnlockDurationHours:    0,
		InfluenceRadiusMeters:  50,
		PenaltyDurationMinutes: 10,
		RequireAllCategories:   false,
		MaxBreachRecords:       50,
		PruneCount:             10,
		LogFormat:              "json",
		MetricsAddr:            "",
		StorePath:              "",
	}
}

// Load builds a Config from defaults, then an optional YAML file, then an
// optional flag set. A missing path is ignored only when it is empty; a
// named file that does not exist is an error.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, oops.Code("CONFIG_FILE_MISSING").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks option ranges.
func (c Config) Validate() error {
	if c.UnlockDurationHours < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("unlock_duration_hours must be >= 0, got %v", c.UnlockDurationHours)
	}
	if c.InfluenceRadiusMeters < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("influence_radius_meters must be >= 0, got %v", c.InfluenceRadiusMeters)
	}
	if c.PenaltyDurationMinutes < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("penalty_duration_minutes must be >= 0, got %v", c.PenaltyDurationMinutes)
	}
	if c.MaxBreachRecords <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("max_breach_records must be > 0, got %d", c.MaxBreachRecords)
	}
	if c.PruneCount <= 0 || c.PruneCount > c.MaxBreachRecords {
		return oops.Code("CONFIG_INVALID").Errorf("prune_count must be in 1..max_breach_records, got %d", c.PruneCount)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be \"json\" or \"text\", got %q", c.LogFormat)
	}
	return nil
}

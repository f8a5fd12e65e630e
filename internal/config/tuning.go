// Package config loads tuning parameters for the clustering pipeline from
// JSON files. Fields are pointers so a partial file only overrides what it
// names; the Get* accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file,
// relative to the repository root.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for the clustering engine and the
// driver around it.
type TuningConfig struct {
	// Clustering params
	Eps          *float64 `json:"eps,omitempty"`
	MinPts       *int     `json:"min_pts,omitempty"`
	TrimLookback *float64 `json:"trim_lookback,omitempty"`

	// Resource params
	ArenaCapacity *int `json:"arena_capacity,omitempty"`

	// Reporting params
	LogInterval   *string `json:"log_interval,omitempty"` // duration string like "2s"
	RecentClusters *int   `json:"recent_clusters,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under a small size cap; fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.Eps != nil && *c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %f", *c.Eps)
	}
	if c.MinPts != nil && *c.MinPts < 1 {
		return fmt.Errorf("min_pts must be at least 1, got %d", *c.MinPts)
	}
	if c.TrimLookback != nil && *c.TrimLookback <= 0 {
		return fmt.Errorf("trim_lookback must be positive, got %f", *c.TrimLookback)
	}
	if c.ArenaCapacity != nil && *c.ArenaCapacity < 0 {
		return fmt.Errorf("arena_capacity must be non-negative, got %d", *c.ArenaCapacity)
	}
	if c.LogInterval != nil && *c.LogInterval != "" {
		if _, err := time.ParseDuration(*c.LogInterval); err != nil {
			return fmt.Errorf("invalid log_interval '%s': %w", *c.LogInterval, err)
		}
	}
	if c.RecentClusters != nil && *c.RecentClusters < 0 {
		return fmt.Errorf("recent_clusters must be non-negative, got %d", *c.RecentClusters)
	}
	return nil
}

// GetEps returns the neighbourhood radius or the default.
func (c *TuningConfig) GetEps() float64 {
	if c.Eps == nil {
		return 10
	}
	return *c.Eps
}

// GetMinPts returns the core-point threshold or the default.
func (c *TuningConfig) GetMinPts() int {
	if c.MinPts == nil {
		return 2
	}
	return *c.MinPts
}

// GetTrimLookback returns the trim retention multiplier or the default.
func (c *TuningConfig) GetTrimLookback() float64 {
	if c.TrimLookback == nil {
		return 10
	}
	return *c.TrimLookback
}

// GetArenaCapacity returns the arena capacity; zero means unbounded.
func (c *TuningConfig) GetArenaCapacity() int {
	if c.ArenaCapacity == nil {
		return 0
	}
	return *c.ArenaCapacity
}

// GetLogInterval parses and returns the stats logging interval.
func (c *TuningConfig) GetLogInterval() time.Duration {
	if c.LogInterval == nil || *c.LogInterval == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.LogInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetRecentClusters returns how many finalized clusters the monitor keeps.
func (c *TuningConfig) GetRecentClusters() int {
	if c.RecentClusters == nil {
		return 64
	}
	return *c.RecentClusters
}

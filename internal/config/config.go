// Package config provides configuration structures and defaults for crater.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSegmentSizeThreshold = 500 * 1024
	defaultCompactionInterval   = 10 * time.Second
	defaultStorageDir           = "crater-data"
	defaultEventBufferSize      = 128
)

// Config holds all tunable parameters for crater's durability and compaction
// behavior.
type Config struct {
	// StorageDir is the directory holding segment files. Created if missing.
	StorageDir string `yaml:"storage_dir"`
	// SegmentSizeThreshold is the byte size past which the active segment is
	// sealed and a fresh one created. Compacted segments are exempt.
	SegmentSizeThreshold int64 `yaml:"segment_size_threshold"`
	// CompactionInterval is the period of the background merge task.
	CompactionInterval time.Duration `yaml:"compaction_interval"`
	// EventBufferSize is the per-subscriber notification channel capacity.
	EventBufferSize int `yaml:"event_buffer_size"`
	// NoSync disables the per-append fsync. Writes are acknowledged once
	// handed to the OS, trading durability for throughput.
	NoSync bool `yaml:"no_sync"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config struct populated with default values.
func DefaultConfig() *Config {
	return &Config{
		StorageDir:           defaultStorageDir,
		SegmentSizeThreshold: defaultSegmentSizeThreshold,
		CompactionInterval:   defaultCompactionInterval,
		EventBufferSize:      defaultEventBufferSize,
		LogLevel:             "info",
	}
}

// FillDefaults sets any zero-value fields in the Config to their default values.
func (c *Config) FillDefaults() {
	def := DefaultConfig()
	if c.StorageDir == "" {
		c.StorageDir = def.StorageDir
	}
	if c.SegmentSizeThreshold == 0 {
		c.SegmentSizeThreshold = def.SegmentSizeThreshold
	}
	if c.CompactionInterval == 0 {
		c.CompactionInterval = def.CompactionInterval
	}
	if c.EventBufferSize == 0 {
		c.EventBufferSize = def.EventBufferSize
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// LoadFile reads a YAML config file and fills unset fields with defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.FillDefaults()

	return cfg, nil
}

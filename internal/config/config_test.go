package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/craterdb/crater/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, int64(500*1024), cfg.SegmentSizeThreshold)
	assert.Equal(t, 10*time.Second, cfg.CompactionInterval)
	assert.Equal(t, "crater-data", cfg.StorageDir)
	assert.False(t, cfg.NoSync)
}

func TestFillDefaults(t *testing.T) {
	cfg := &config.Config{StorageDir: "/tmp/custom", NoSync: true}
	cfg.FillDefaults()

	assert.Equal(t, "/tmp/custom", cfg.StorageDir)
	assert.True(t, cfg.NoSync)
	assert.Equal(t, int64(500*1024), cfg.SegmentSizeThreshold)
	assert.Equal(t, 10*time.Second, cfg.CompactionInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crater.yaml")
	data := []byte("storage_dir: /var/lib/crater\nsegment_size_threshold: 1024\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/crater", cfg.StorageDir)
	assert.Equal(t, int64(1024), cfg.SegmentSizeThreshold)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unset fields fall back to defaults.
	assert.Equal(t, 10*time.Second, cfg.CompactionInterval)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_dir: [broken"), 0644))

	_, err := config.LoadFile(path)
	assert.Error(t, err)
}

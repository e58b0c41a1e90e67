// Package crater is a persistent, embeddable key-value store built on an
// append-only log of segment files.
//
// Writes go to the active segment and are indexed in memory; reads scan
// segments newest to oldest. A background compactor periodically merges the
// sealed segments into one, keeping only the latest value per key and
// deleting the merged files.
//
// Example usage:
//
//	db, err := crater.Open("/path/to/data", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Set([]byte("key"), []byte("value")); err != nil {
//		log.Printf("Set failed: %v", err)
//	}
//
//	value, err := db.Get([]byte("key"))
//	if errors.Is(err, crater.ErrNotFound) {
//		fmt.Println("no such key")
//	}
package crater

import (
	"net/http"

	"github.com/craterdb/crater/internal/config"
	"github.com/craterdb/crater/internal/metrics"
	"github.com/craterdb/crater/internal/record"
	"github.com/craterdb/crater/internal/store"
	"github.com/google/uuid"
)

// Config is an alias for config.Config, re-exported for user convenience.
type Config = config.Config

// DefaultConfig returns a Config struct populated with default values. Re-exported for user convenience.
var DefaultConfig = config.DefaultConfig

// LoadConfig reads a YAML config file. Re-exported for user convenience.
var LoadConfig = config.LoadFile

// Sentinel errors surfaced by the engine.
var (
	// ErrNotFound is returned by Get when no segment holds the key.
	ErrNotFound = store.ErrNotFound
	// ErrKeyTooLong is returned by Set when the key exceeds the fixed key width.
	ErrKeyTooLong = record.ErrKeyTooLong
	// ErrInvalidKey is returned by Set when the key contains zero bytes.
	ErrInvalidKey = record.ErrInvalidKey
	// ErrCorruptSegment indicates a framing mismatch in a segment file.
	ErrCorruptSegment = record.ErrCorruptSegment
)

// MaxKeySize is the fixed width of the key field in bytes.
const MaxKeySize = record.KeySize

// Event types delivered to subscribers, re-exported for user convenience.
type (
	// Event is a notification emitted by the store.
	Event = store.Event
	// Written is emitted after each durably appended set.
	Written = store.Written
	// Compacted is emitted after each successful merge cycle.
	Compacted = store.Compacted
)

// Stats is an alias for store.Stats, re-exported for user convenience.
type Stats = store.Stats

// DB is an embeddable crater instance. It accepts a single writer and any
// number of concurrent readers.
type DB struct {
	store *store.Store
}

// Open opens or creates a crater store in dir. The directory is created if
// it doesn't exist; existing segment files are recovered and the background
// compactor is started.
//
// Returns a DB instance or an error if recovery fails.
func Open(dir string, cfg *Config) (*DB, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if dir != "" {
		cfg.StorageDir = dir
	}

	s, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{store: s}, nil
}

// Set writes a key-value pair, overwriting any existing value for the key.
// It returns once the record is durably appended to the active segment.
func (db *DB) Set(key, value []byte) error {
	return db.store.Set(key, value)
}

// Get retrieves the value for a given key, or ErrNotFound if the key has
// never been set.
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.store.Get(key)
}

// Compact triggers one merge cycle outside the regular schedule.
func (db *DB) Compact() error {
	return db.store.Compact()
}

// Subscribe registers a listener for Written and Compacted events. The
// returned id is the handle for Unsubscribe.
func (db *DB) Subscribe() (uuid.UUID, <-chan Event) {
	return db.store.Subscribe()
}

// Unsubscribe removes a listener and closes its channel.
func (db *DB) Unsubscribe(id uuid.UUID) {
	db.store.Unsubscribe(id)
}

// Stats returns a snapshot of segment count and active segment size.
func (db *DB) Stats() Stats {
	return db.store.Stats()
}

// MetricsHandler returns the Prometheus scrape handler for a serving layer
// to mount.
func MetricsHandler() http.Handler {
	return metrics.Handler()
}

// Close stops the background compactor, closes all segment files and closes
// subscriber channels. The DB should not be used afterwards.
func (db *DB) Close() error {
	return db.store.Close()
}

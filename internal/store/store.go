// Package store implements the engine core: an ordered list of append-only
// segments (newest first), startup recovery, and background compaction.
package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/craterdb/crater/internal/config"
	"github.com/craterdb/crater/internal/logger"
	"github.com/craterdb/crater/internal/metrics"
	"github.com/craterdb/crater/internal/segment"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no segment holds the key.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned for operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store dispatches gets and sets over an ordered sequence of segments.
// segments[0] is the sole writable (active) segment; all others are sealed.
// The list itself is guarded by mu and is only ever replaced wholesale: the
// exclusive lock is held just for the rotation prepend and the compaction
// splice, so readers always observe either the full old list or the full new
// one.
type Store struct {
	cfg *config.Config

	mu       sync.RWMutex
	segments []*segment.Segment
	closed   bool

	// compactMu serializes merge cycles; the splice math assumes the
	// merged run is still the list suffix, which only holds while at
	// most one cycle runs at a time.
	compactMu sync.Mutex

	counter   atomic.Uint64
	events    *hub
	compactor *Compactor
}

// Open recovers segment state from cfg.StorageDir and starts the background
// compactor. Any inaccessible directory or corrupt segment aborts startup.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	} else {
		cfg.FillDefaults()
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	s := &Store{
		cfg:    cfg,
		events: newHub(cfg.EventBufferSize),
	}

	if err := s.recover(); err != nil {
		return nil, err
	}
	metrics.LiveSegments.Set(float64(len(s.segments)))

	s.compactor = newCompactor(s, cfg.CompactionInterval)
	s.compactor.Start()

	logger.Info("store opened at %s with %d segment(s)", cfg.StorageDir, len(s.segments))
	return s, nil
}

// Get scans segments newest to oldest and returns the value from the first
// index hit. Read errors fail only this call.
func (s *Store) Get(key []byte) ([]byte, error) {
	metrics.GetsTotal.Inc()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	for _, seg := range s.segments {
		value, found, err := seg.Read(key)
		if err != nil {
			return nil, err
		}
		if found {
			return value, nil
		}
	}

	metrics.GetMissesTotal.Inc()
	return nil, ErrNotFound
}

// Set appends the pair to the active segment, rotating to a fresh segment
// first if the active one is oversized. On success a Written event is
// emitted. The store accepts a single writer; Set is not safe for concurrent
// use with itself, only with Get and the compactor.
func (s *Store) Set(key, value []byte) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	active := s.segments[0]
	s.mu.RUnlock()

	if active.ShouldRotate(s.cfg.SegmentSizeThreshold) {
		var err error
		if active, err = s.rotate(active); err != nil {
			return err
		}
	}

	if err := active.Append(key, value); err != nil {
		return err
	}

	metrics.SetsTotal.Inc()
	// Copy before publishing: callers are free to reuse their buffers as
	// soon as Set returns.
	s.events.publish(Written{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	})
	return nil
}

// rotate seals the current active segment by prepending a fresh one. The
// prepend builds a new slice, so concurrent readers keep a coherent view.
func (s *Store) rotate(prev *segment.Segment) (*segment.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.segments[0] != prev {
		return s.segments[0], nil
	}

	seg, err := segment.Create(s.cfg.StorageDir, s.counter.Add(1), false, !s.cfg.NoSync)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate segment: %w", err)
	}

	s.segments = append([]*segment.Segment{seg}, s.segments...)
	metrics.RotationsTotal.Inc()
	metrics.LiveSegments.Set(float64(len(s.segments)))
	logger.Info("rotated to segment %06d (%d sealed)", seg.ID(), len(s.segments)-1)

	return seg, nil
}

// Subscribe registers a listener for store events. The returned channel is
// closed on Unsubscribe or when the store shuts down.
func (s *Store) Subscribe() (uuid.UUID, <-chan Event) {
	return s.events.subscribe()
}

// Unsubscribe removes a listener and closes its channel.
func (s *Store) Unsubscribe(id uuid.UUID) {
	s.events.unsubscribe(id)
}

// Stats reports the current segment count and active segment size.
type Stats struct {
	Segments    int
	ActiveBytes int64
}

// Stats returns a point-in-time snapshot of store shape.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Segments: len(s.segments)}
	if len(s.segments) > 0 {
		st.ActiveBytes = s.segments[0].Size()
	}
	return st
}

// Close cancels the compaction task, closes every segment handle and closes
// all subscriber channels. The store is unusable afterwards.
func (s *Store) Close() error {
	s.compactor.Stop()
	s.events.close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, seg := range s.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.segments = nil

	return firstErr
}

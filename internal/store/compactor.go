package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/craterdb/crater/internal/logger"
	"github.com/craterdb/crater/internal/metrics"
	"github.com/craterdb/crater/internal/segment"
)

// Compactor periodically merges the sealed segments into a single compacted
// segment. The active segment is structurally excluded from every cycle, so
// writers are never blocked by a running merge.
type Compactor struct {
	store    *Store
	interval time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newCompactor(s *Store, interval time.Duration) *Compactor {
	return &Compactor{
		store:    s,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic compaction task.
func (c *Compactor) Start() {
	c.wg.Add(1)
	go c.run()
}

func (c *Compactor) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			// A failed cycle leaves the prior list intact; the next
			// tick retries from scratch.
			if err := c.store.Compact(); err != nil {
				metrics.CompactionFailuresTotal.Inc()
				logger.Error("compaction cycle failed: %v", err)
			}
		}
	}
}

// Stop cancels the task and waits for an in-flight cycle to finish.
func (c *Compactor) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// location identifies where the newest record for a key lives.
type location struct {
	seg    *segment.Segment
	offset int64
}

// Compact runs one merge cycle: consolidate every sealed segment's index
// (oldest to newest, so later entries overwrite earlier ones), write the
// surviving records into one compacted segment, splice it in place of the
// merged run in a single list replacement, then delete the merged files.
func (s *Store) Compact() error {
	s.compactMu.Lock()
	defer s.compactMu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	sealed := append([]*segment.Segment(nil), s.segments[1:]...)
	s.mu.RUnlock()

	if len(sealed) == 0 {
		return nil
	}

	merged := make(map[string]location)
	for i := len(sealed) - 1; i >= 0; i-- {
		for key, off := range sealed[i].Entries() {
			merged[key] = location{seg: sealed[i], offset: off}
		}
	}
	if len(merged) == 0 {
		return nil
	}

	out, err := segment.Create(s.cfg.StorageDir, s.counter.Add(1), true, !s.cfg.NoSync)
	if err != nil {
		return fmt.Errorf("failed to create compacted segment: %w", err)
	}

	for key, loc := range merged {
		value, err := loc.seg.ReadValueAt(loc.offset)
		if err != nil {
			_ = out.Remove()
			return fmt.Errorf("failed to read %q from segment %06d: %w", key, loc.seg.ID(), err)
		}
		if err := out.Append([]byte(key), value); err != nil {
			_ = out.Remove()
			return fmt.Errorf("failed to write %q to compacted segment: %w", key, err)
		}
	}
	if err := out.Sync(); err != nil {
		_ = out.Remove()
		return fmt.Errorf("failed to sync compacted segment: %w", err)
	}

	var reclaimed int64
	for _, seg := range sealed {
		reclaimed += seg.Size()
	}
	reclaimed -= out.Size()

	// Rotations only ever prepend, so the merged run is still the list
	// suffix. Replace it with the compacted segment in one assignment.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = out.Remove()
		return ErrClosed
	}
	keep := len(s.segments) - len(sealed)
	s.segments = append(append([]*segment.Segment(nil), s.segments[:keep]...), out)
	metrics.LiveSegments.Set(float64(len(s.segments)))
	s.mu.Unlock()

	removed := make([]uint64, 0, len(sealed))
	for _, seg := range sealed {
		removed = append(removed, seg.ID())
		if err := seg.Remove(); err != nil {
			logger.Warn("failed to remove merged segment %06d: %v", seg.ID(), err)
		}
	}

	metrics.CompactionsTotal.Inc()
	if reclaimed > 0 {
		metrics.ReclaimedBytesTotal.Add(float64(reclaimed))
	}
	logger.Info("compacted %d segment(s) into %06d, reclaimed %d bytes", len(sealed), out.ID(), reclaimed)

	s.events.publish(Compacted{Removed: removed, Created: out.ID()})
	return nil
}

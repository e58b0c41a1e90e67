package store

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/craterdb/crater/internal/logger"
	"github.com/craterdb/crater/internal/segment"
)

// diskSegment is one on-disk segment file found during recovery.
type diskSegment struct {
	name      string
	id        uint64
	compacted bool
	modTime   time.Time
}

// recover rebuilds the segment list from cfg.StorageDir. Compacted segments
// may hold stale values, so the compacted class is indexed before any normal
// segment that could override it; within each class files are processed
// oldest to newest. Each rebuilt segment is inserted at the front, leaving
// the most recently modified normal segment active at index 0.
func (s *Store) recover() error {
	dir := s.cfg.StorageDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list storage dir %s: %w", dir, err)
	}

	var compacted, normal []diskSegment
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, isCompacted, ok := segment.ParseFilename(entry.Name())
		if !ok {
			logger.Warn("ignoring unrecognized file %s", entry.Name())
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		ds := diskSegment{name: entry.Name(), id: id, compacted: isCompacted, modTime: info.ModTime()}
		if isCompacted {
			compacted = append(compacted, ds)
		} else {
			normal = append(normal, ds)
		}
	}

	byModTime := func(class []diskSegment) func(i, j int) bool {
		return func(i, j int) bool {
			if class[i].modTime.Equal(class[j].modTime) {
				return class[i].id < class[j].id
			}
			return class[i].modTime.Before(class[j].modTime)
		}
	}
	sort.Slice(compacted, byModTime(compacted))
	sort.Slice(normal, byModTime(normal))

	var maxID uint64
	for _, ds := range append(compacted, normal...) {
		seg, err := segment.Open(segment.Filename(dir, ds.id, ds.compacted), ds.id, ds.compacted, !s.cfg.NoSync)
		if err != nil {
			for _, opened := range s.segments {
				_ = opened.Close()
			}
			s.segments = nil
			return err
		}
		s.segments = append([]*segment.Segment{seg}, s.segments...)
		if ds.id > maxID {
			maxID = ds.id
		}
		logger.Debug("recovered segment %s with %d key(s)", ds.name, seg.Len())
	}
	s.counter.Store(maxID)

	// A store must always have a writable segment at index 0.
	if len(normal) == 0 {
		seg, err := segment.Create(dir, s.counter.Add(1), false, !s.cfg.NoSync)
		if err != nil {
			for _, opened := range s.segments {
				_ = opened.Close()
			}
			s.segments = nil
			return fmt.Errorf("failed to create initial segment: %w", err)
		}
		s.segments = append([]*segment.Segment{seg}, s.segments...)
	}

	return nil
}

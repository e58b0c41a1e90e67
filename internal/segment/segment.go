// Package segment implements a single append-only segment file paired with
// its in-memory key-to-offset index.
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/craterdb/crater/internal/record"
	"golang.org/x/exp/mmap"
)

const (
	// NormalExt is the file extension of writable/sealed segments.
	NormalExt = ".seg"
	// CompactedExt is the file extension of segments produced by a merge.
	CompactedExt = ".cseg"
)

// Segment owns one append-only file and the index of the last offset of each
// key within it. Indexed offsets always point at a complete, correctly-framed
// record. A segment's file handle and index are never shared; all access goes
// through its methods.
type Segment struct {
	mu sync.RWMutex

	id         uint64
	path       string
	compacted  bool
	syncWrites bool

	file   *os.File
	offset int64
	index  map[string]int64
}

// Filename returns the on-disk name for a segment with the given creation id.
func Filename(dir string, id uint64, compacted bool) string {
	ext := NormalExt
	if compacted {
		ext = CompactedExt
	}
	return filepath.Join(dir, fmt.Sprintf("%06d%s", id, ext))
}

// ParseFilename extracts the creation id and class from a segment file name.
// The second return reports whether the name is a segment file at all.
func ParseFilename(name string) (id uint64, compacted, ok bool) {
	base, found := strings.CutSuffix(name, NormalExt)
	if !found {
		if base, found = strings.CutSuffix(name, CompactedExt); !found {
			return 0, false, false
		}
		compacted = true
	}

	id, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, false, false
	}
	return id, compacted, true
}

// Create creates a fresh, empty segment file.
func Create(dir string, id uint64, compacted, syncOnWrite bool) (*Segment, error) {
	path := Filename(dir, id, compacted)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment %s: %w", path, err)
	}
	advise(file)

	return &Segment{
		id:         id,
		path:       path,
		compacted:  compacted,
		syncWrites: syncOnWrite,
		file:       file,
		index:      make(map[string]int64),
	}, nil
}

// Open opens an existing segment file and rebuilds its index with a linear
// scan that decodes only length headers and key fields. A truncated trailing
// record surfaces as record.ErrCorruptSegment.
func Open(path string, id uint64, compacted, syncOnWrite bool) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment %s: %w", path, err)
	}
	advise(file)

	index, end, err := rebuildIndex(path)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("segment %s: %w", filepath.Base(path), err)
	}

	return &Segment{
		id:         id,
		path:       path,
		compacted:  compacted,
		syncWrites: syncOnWrite,
		file:       file,
		offset:     end,
		index:      index,
	}, nil
}

// rebuildIndex scans the file through a read-only memory mapping, recording
// the last offset of every key.
func rebuildIndex(path string) (map[string]int64, int64, error) {
	index := make(map[string]int64)

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if info.Size() == 0 {
		return index, 0, nil
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = r.Close() }()

	size := int64(r.Len())
	var pos int64
	for pos < size {
		key, next, err := record.DecodeKey(r, pos)
		if err != nil {
			return nil, 0, err
		}
		if next > size {
			return nil, 0, fmt.Errorf("%w: record at offset %d overruns file", record.ErrCorruptSegment, pos)
		}
		index[string(key)] = pos
		pos = next
	}

	return index, pos, nil
}

// Append frames the pair and writes it at the current append offset. The
// index is updated only after the write succeeds, so a failed append leaves
// the index consistent with the file's actual contents.
func (s *Segment) Append(key, value []byte) error {
	buf, err := record.Encode(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.file.WriteAt(buf, s.offset)
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(s.path), err)
	}
	if s.syncWrites {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s: %w", filepath.Base(s.path), err)
		}
	}

	s.index[string(key)] = s.offset
	s.offset += int64(n)

	return nil
}

// Read returns the value of key, or false if this segment has never seen it.
func (s *Segment) Read(key []byte) ([]byte, bool, error) {
	off, ok := s.Lookup(key)
	if !ok {
		return nil, false, nil
	}

	value, err := record.DecodeValue(s.file, off)
	if err != nil {
		return nil, true, err
	}
	return value, true, nil
}

// Lookup returns the offset of the last record written for key.
func (s *Segment) Lookup(key []byte) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	off, ok := s.index[string(key)]
	return off, ok
}

// ReadValueAt decodes the record at the given offset and returns its value.
func (s *Segment) ReadValueAt(offset int64) ([]byte, error) {
	return record.DecodeValue(s.file, offset)
}

// Entries returns a copy of the key-to-offset index.
func (s *Segment) Entries() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make(map[string]int64, len(s.index))
	for k, off := range s.index {
		entries[k] = off
	}
	return entries
}

// ShouldRotate reports whether the append offset exceeds threshold. The
// store checks this before writing; the segment never enforces it itself.
func (s *Segment) ShouldRotate(threshold int64) bool {
	return s.Size() > threshold
}

// Size returns the current append offset in bytes.
func (s *Segment) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// Len returns the number of distinct keys indexed in this segment.
func (s *Segment) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// ID returns the segment's creation identifier.
func (s *Segment) ID() uint64 { return s.id }

// Path returns the segment's file path.
func (s *Segment) Path() string { return s.path }

// Compacted reports whether this segment was produced by a merge.
func (s *Segment) Compacted() bool { return s.compacted }

// Sync flushes the file to stable storage.
func (s *Segment) Sync() error {
	return s.file.Sync()
}

// Close closes the underlying file handle.
func (s *Segment) Close() error {
	return s.file.Close()
}

// Remove closes the segment and deletes its file.
func (s *Segment) Remove() error {
	if err := s.file.Close(); err != nil {
		return err
	}
	return os.Remove(s.path)
}

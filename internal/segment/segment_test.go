package segment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/craterdb/crater/internal/record"
	"github.com/craterdb/crater/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameRoundTrip(t *testing.T) {
	path := segment.Filename("", 42, false)
	id, compacted, ok := segment.ParseFilename(path)
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)
	assert.False(t, compacted)

	path = segment.Filename("", 7, true)
	id, compacted, ok = segment.ParseFilename(path)
	require.True(t, ok)
	assert.Equal(t, uint64(7), id)
	assert.True(t, compacted)

	_, _, ok = segment.ParseFilename("notes.txt")
	assert.False(t, ok)
}

func TestAppendRead(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 1, false, true)
	require.NoError(t, err)
	defer func() { _ = seg.Close() }()

	require.NoError(t, seg.Append([]byte("foo"), []byte("bar")))
	require.NoError(t, seg.Append([]byte("baz"), []byte("qux")))

	val, found, err := seg.Read([]byte("foo"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("bar"), val)

	val, found, err = seg.Read([]byte("baz"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("qux"), val)

	_, found, err = seg.Read([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAppendLastWriteWins(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 1, false, true)
	require.NoError(t, err)
	defer func() { _ = seg.Close() }()

	require.NoError(t, seg.Append([]byte("k"), []byte("v1")))
	require.NoError(t, seg.Append([]byte("k"), []byte("v2")))

	val, found, err := seg.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v2"), val)
	assert.Equal(t, 1, seg.Len())
}

func TestAppendAdvancesOffset(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 1, false, true)
	require.NoError(t, err)
	defer func() { _ = seg.Close() }()

	require.NoError(t, seg.Append([]byte("a"), []byte("12345")))

	recordLen := int64(record.LengthSize + record.KeySize + 5)
	assert.Equal(t, recordLen, seg.Size())

	off, ok := seg.Lookup([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, int64(0), off)

	require.NoError(t, seg.Append([]byte("b"), []byte("1")))
	off, ok = seg.Lookup([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, recordLen, off)
}

func TestShouldRotate(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 1, false, true)
	require.NoError(t, err)
	defer func() { _ = seg.Close() }()

	assert.False(t, seg.ShouldRotate(10))

	require.NoError(t, seg.Append([]byte("k"), []byte("value")))
	assert.True(t, seg.ShouldRotate(10))
	assert.False(t, seg.ShouldRotate(1024))
}

func TestOpenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 3, false, true)
	require.NoError(t, err)
	require.NoError(t, seg.Append([]byte("a"), []byte("1")))
	require.NoError(t, seg.Append([]byte("b"), []byte("2")))
	require.NoError(t, seg.Append([]byte("a"), []byte("3")))
	path := seg.Path()
	size := seg.Size()
	require.NoError(t, seg.Close())

	reopened, err := segment.Open(path, 3, false, true)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	assert.Equal(t, size, reopened.Size(), "append offset must resume at end of file")
	assert.Equal(t, 2, reopened.Len())

	val, found, err := reopened.Read([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("3"), val, "index must point at the last record for the key")

	val, found, err = reopened.Read([]byte("b"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("2"), val)
}

func TestOpenEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "000009.seg")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	seg, err := segment.Open(path, 9, false, true)
	require.NoError(t, err)
	defer func() { _ = seg.Close() }()

	assert.Equal(t, int64(0), seg.Size())
	assert.Equal(t, 0, seg.Len())
}

func TestOpenTruncatedFile(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 5, false, true)
	require.NoError(t, err)
	require.NoError(t, seg.Append([]byte("k"), []byte("a value long enough to chop")))
	path := seg.Path()
	size := seg.Size()
	require.NoError(t, seg.Close())

	require.NoError(t, os.Truncate(path, size-4))

	_, err = segment.Open(path, 5, false, true)
	assert.ErrorIs(t, err, record.ErrCorruptSegment, "truncated trailing record must never be repaired")
}

func TestRemoveDeletesFile(t *testing.T) {
	dir := t.TempDir()

	seg, err := segment.Create(dir, 8, true, true)
	require.NoError(t, err)
	require.NoError(t, seg.Append([]byte("k"), []byte("v")))

	path := seg.Path()
	require.NoError(t, seg.Remove())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

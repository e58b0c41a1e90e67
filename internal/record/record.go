// Package record implements the binary framing of key-value pairs as stored
// in segment files.
//
// Format: [4 bytes big-endian length of (key field + value)][key field, fixed
// KeySize bytes, zero-padded on the right][value bytes]. There is no file
// header, footer or checksum; corruption surfaces only as a length/byte-count
// mismatch during a scan.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the fixed width of the key field. Shorter keys are
	// zero-padded on the right.
	KeySize = 20
	// LengthSize is the size in bytes of the length header.
	LengthSize = 4
)

var (
	// ErrKeyTooLong is returned when a key exceeds KeySize bytes.
	ErrKeyTooLong = errors.New("key exceeds maximum key size")
	// ErrInvalidKey is returned when a key contains zero bytes, which are
	// indistinguishable from padding.
	ErrInvalidKey = errors.New("key contains zero bytes")
	// ErrCorruptSegment is returned when a length header claims more bytes
	// than the segment actually holds.
	ErrCorruptSegment = errors.New("corrupt segment")
)

// Encode frames a key-value pair for appending to a segment.
func Encode(key, value []byte) ([]byte, error) {
	if len(key) > KeySize {
		return nil, fmt.Errorf("%w: %d > %d", ErrKeyTooLong, len(key), KeySize)
	}
	if bytes.IndexByte(key, 0) >= 0 {
		return nil, ErrInvalidKey
	}

	buf := make([]byte, LengthSize+KeySize+len(value))
	binary.BigEndian.PutUint32(buf[:LengthSize], uint32(KeySize+len(value)))
	copy(buf[LengthSize:], key)
	copy(buf[LengthSize+KeySize:], value)

	return buf, nil
}

// DecodeValue reads the record starting at offset and returns its value.
// A header claiming more bytes than the source holds yields ErrCorruptSegment.
func DecodeValue(r io.ReaderAt, offset int64) ([]byte, error) {
	length, err := readHeader(r, offset)
	if err != nil {
		return nil, err
	}

	body := make([]byte, length)
	if _, err := r.ReadAt(body, offset+LengthSize); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: record at offset %d declares %d bytes past end of segment",
				ErrCorruptSegment, offset, length)
		}
		return nil, fmt.Errorf("failed to read record body: %w", err)
	}

	return body[KeySize:], nil
}

// DecodeKey reads only the header and key field of the record at offset,
// returning the key with its right zero-padding stripped and the offset of
// the next record. Value bytes are never touched, which keeps recovery scans
// cheap.
func DecodeKey(r io.ReaderAt, offset int64) ([]byte, int64, error) {
	length, err := readHeader(r, offset)
	if err != nil {
		return nil, 0, err
	}

	field := make([]byte, KeySize)
	if _, err := r.ReadAt(field, offset+LengthSize); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, fmt.Errorf("%w: truncated key field at offset %d", ErrCorruptSegment, offset)
		}
		return nil, 0, fmt.Errorf("failed to read key field: %w", err)
	}

	key := bytes.TrimRight(field, "\x00")
	return key, offset + LengthSize + int64(length), nil
}

// readHeader decodes the 4-byte length header at offset and validates that
// the declared length can hold at least the key field.
func readHeader(r io.ReaderAt, offset int64) (uint32, error) {
	hdr := make([]byte, LengthSize)
	if _, err := r.ReadAt(hdr, offset); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: truncated length header at offset %d", ErrCorruptSegment, offset)
		}
		return 0, fmt.Errorf("failed to read length header: %w", err)
	}

	length := binary.BigEndian.Uint32(hdr)
	if length < KeySize {
		return 0, fmt.Errorf("%w: declared length %d smaller than key field at offset %d",
			ErrCorruptSegment, length, offset)
	}

	return length, nil
}

// If you are AI: This file implements FLV tag encoding and decoding.
// RTMP audio, video and data payloads are already FLV tag bodies and are copied unmodified.

package flv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidTag reports a malformed tag or header.
var ErrInvalidTag = errors.New("invalid FLV tag")

// Tag represents an FLV tag (audio, video, or script).
type Tag struct {
	Type      byte
	Timestamp uint32
	Data      []byte
}

// Bytes encodes the tag followed by its previous tag size.
// Format: tag type (1) + data size (3) + timestamp lower (3) + timestamp upper (1) + stream ID (3) + data (N) + previous tag size (4)
func (t *Tag) Bytes() []byte {
	result := make([]byte, TagHeaderSize+len(t.Data)+previousTagSize)
	t.putHeader(result)
	copy(result[TagHeaderSize:], t.Data)
	binary.BigEndian.PutUint32(result[TagHeaderSize+len(t.Data):], uint32(TagHeaderSize+len(t.Data)))
	return result
}

// WriteTo writes the tag without copying the payload.
func (t *Tag) WriteTo(w io.Writer) (int64, error) {
	var hdr [TagHeaderSize]byte
	t.putHeader(hdr[:])
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], uint32(TagHeaderSize+len(t.Data)))

	var total int64
	for _, b := range [][]byte{hdr[:], t.Data, trailer[:]} {
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// putHeader encodes the 11-byte tag header into b.
func (t *Tag) putHeader(b []byte) {
	size := uint32(len(t.Data))
	b[0] = t.Type
	b[1] = byte(size >> 16)
	b[2] = byte(size >> 8)
	b[3] = byte(size)
	// Timestamp: lower 24 bits in bytes 4-6, upper 8 bits in byte 7
	b[4] = byte(t.Timestamp >> 16)
	b[5] = byte(t.Timestamp >> 8)
	b[6] = byte(t.Timestamp)
	b[7] = byte(t.Timestamp >> 24)
	// Stream ID (3 bytes, always 0)
	b[8], b[9], b[10] = 0, 0, 0
}

// NewTag creates a new FLV tag from type, timestamp, and data.
func NewTag(tagType byte, timestamp uint32, data []byte) *Tag {
	return &Tag{
		Type:      tagType,
		Timestamp: timestamp,
		Data:      data,
	}
}

// ReadTag reads one tag and its trailing previous tag size.
func ReadTag(r io.Reader) (*Tag, error) {
	var hdr [TagHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := uint32(hdr[1])<<16 | uint32(hdr[2])<<8 | uint32(hdr[3])
	tag := &Tag{
		Type:      hdr[0],
		Timestamp: uint32(hdr[7])<<24 | uint32(hdr[4])<<16 | uint32(hdr[5])<<8 | uint32(hdr[6]),
		Data:      make([]byte, size),
	}
	if _, err := io.ReadFull(r, tag.Data); err != nil {
		return nil, err
	}
	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, err
	}
	if prev := binary.BigEndian.Uint32(trailer[:]); prev != TagHeaderSize+size {
		return nil, fmt.Errorf("%w: previous tag size %d", ErrInvalidTag, prev)
	}
	return tag, nil
}

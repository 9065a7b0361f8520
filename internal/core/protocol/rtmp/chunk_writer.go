// If you are AI: This file implements RTMP chunk encoding for outgoing messages.
// The first chunk always uses a full format 0 header; continuations use format 3.

package rtmp

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// ChunkWriter splits outgoing messages into chunks.
// Lock expectations: WriteMessage may be called from the session goroutine and a relay goroutine.
type ChunkWriter struct {
	mu        sync.Mutex
	w         *bufio.Writer
	chunkSize uint32
}

// NewChunkWriter creates a chunk writer using the default chunk size.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{
		w:         bufio.NewWriterSize(w, 16*1024),
		chunkSize: DefaultChunkSize,
	}
}

// SetChunkSize sets the chunk size for subsequent outgoing messages.
// Callers announce the new size to the peer before calling this.
func (c *ChunkWriter) SetChunkSize(size uint32) error {
	if size == 0 || size > MaxChunkSize {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunkSize = size
	return nil
}

// ChunkSize returns the outgoing chunk size.
func (c *ChunkWriter) ChunkSize() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunkSize
}

// WriteMessage encodes msg on chunk stream csID and flushes it.
func (c *ChunkWriter) WriteMessage(csID uint32, msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteChunk(c.w, csID, msg.Type, msg.Timestamp, msg.StreamID, msg.Body, c.chunkSize); err != nil {
		return err
	}
	return c.w.Flush()
}

// WriteChunk writes a message as RTMP chunks.
// Allocation: fixed-size header scratch, payload slices are written directly.
// NOTE: If w is buffered, the caller flushes.
func WriteChunk(w io.Writer, csID uint32, msgType byte, timestamp uint32, streamID uint32, body []byte, chunkSize uint32) error {
	if csID < 2 || csID > 65599 {
		return fmt.Errorf("%w: chunk stream id %d", ErrInvalidChunkHeader, csID)
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	bodyLen := uint32(len(body))
	extended := timestamp >= extendedTimestamp
	var hdr [18]byte
	offset := uint32(0)

	for first := true; first || offset < bodyLen; first = false {
		// Determine chunk format
		format := byte(ChunkFmt3)
		if first {
			format = ChunkFmt0
		}

		n := putBasicHeader(hdr[:], format, csID)

		if format == ChunkFmt0 {
			ts := timestamp
			if extended {
				ts = extendedTimestamp
			}
			putUint24(hdr[n:], ts)
			putUint24(hdr[n+3:], bodyLen)
			hdr[n+6] = msgType
			// Message stream ID is little-endian
			binary.LittleEndian.PutUint32(hdr[n+7:], streamID)
			n += 11
		}
		if extended {
			binary.BigEndian.PutUint32(hdr[n:], timestamp)
			n += 4
		}
		if _, err := w.Write(hdr[:n]); err != nil {
			return err
		}

		// Write chunk payload
		chunkLen := chunkSize
		if offset+chunkLen > bodyLen {
			chunkLen = bodyLen - offset
		}
		if chunkLen > 0 {
			if _, err := w.Write(body[offset : offset+chunkLen]); err != nil {
				return err
			}
		}
		offset += chunkLen
	}
	return nil
}

// putBasicHeader encodes the 1-3 byte basic header and returns its length.
func putBasicHeader(b []byte, format byte, csID uint32) int {
	switch {
	case csID < 64:
		b[0] = format<<6 | byte(csID)
		return 1
	case csID < 320:
		b[0] = format << 6
		b[1] = byte(csID - 64)
		return 2
	default:
		b[0] = format<<6 | 1
		binary.LittleEndian.PutUint16(b[1:3], uint16(csID-64))
		return 3
	}
}

// putUint24 encodes v as a 3-byte big-endian integer.
func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

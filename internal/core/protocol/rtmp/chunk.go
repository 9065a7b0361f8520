// If you are AI: This file implements RTMP chunk parsing and reassembly.
// Each chunk stream ID keeps its own header context so formats 1-3 can reuse prior fields.

package rtmp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ChunkStream represents a chunk stream for message reassembly.
// Each chunk stream ID has its own header memo and reassembly buffer.
type ChunkStream struct {
	chunkStreamID  uint32
	messageType    byte
	messageLength  uint32
	messageStream  uint32
	timestamp      uint32
	timestampDelta uint32
	extended       bool // last header carried an extended timestamp
	buffer         []byte
}

// inProgress reports whether a message is partially assembled.
func (cs *ChunkStream) inProgress() bool {
	return len(cs.buffer) > 0
}

// ChunkReader parses RTMP chunks and reassembles messages.
// It is owned by a single connection goroutine and is not safe for concurrent use.
type ChunkReader struct {
	r              *countingReader
	chunkStreams   map[uint32]*ChunkStream
	chunkSize      uint32
	maxMessageSize uint32
	maxPending     uint32 // bytes of partially assembled messages across all chunk streams
	pending        uint32
	scratch        [11]byte
}

// maxChunkStreams bounds the chunk stream contexts one connection may open.
const maxChunkStreams = 64

// NewChunkReader creates a new chunk reader over r.
// maxMessageSize bounds the declared length of any single message (0 uses the default).
func NewChunkReader(r io.Reader, maxMessageSize uint32) *ChunkReader {
	if maxMessageSize == 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	// Message lengths are 24-bit on the wire.
	if maxMessageSize > 0xFFFFFF {
		maxMessageSize = 0xFFFFFF
	}
	return &ChunkReader{
		r:              &countingReader{r: r},
		chunkStreams:   make(map[uint32]*ChunkStream),
		chunkSize:      DefaultChunkSize,
		maxMessageSize: maxMessageSize,
		maxPending:     2 * maxMessageSize,
	}
}

// SetChunkSize sets the maximum payload size of incoming chunks.
func (p *ChunkReader) SetChunkSize(size uint32) error {
	if size == 0 || size > MaxChunkSize {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	p.chunkSize = size
	return nil
}

// ChunkSize returns the current incoming chunk size.
func (p *ChunkReader) ChunkSize() uint32 {
	return p.chunkSize
}

// Abort discards a partially assembled message on the given chunk stream.
func (p *ChunkReader) Abort(csID uint32) {
	if cs, ok := p.chunkStreams[csID]; ok {
		p.discard(cs)
	}
}

// discard drops the partial message of cs.
func (p *ChunkReader) discard(cs *ChunkStream) {
	p.pending -= uint32(len(cs.buffer))
	cs.buffer = nil
}

// Pending returns the bytes held by partially assembled messages.
func (p *ChunkReader) Pending() uint32 {
	return p.pending
}

// ChunkStreams returns the number of chunk stream contexts in use.
func (p *ChunkReader) ChunkStreams() int {
	return len(p.chunkStreams)
}

// TakeBytesRead returns the number of bytes consumed since the last call.
func (p *ChunkReader) TakeBytesRead() uint32 {
	n := p.r.n
	p.r.n = 0
	return n
}

// Reset drops every chunk stream context and partial buffer.
func (p *ChunkReader) Reset() {
	p.chunkStreams = make(map[uint32]*ChunkStream)
	p.pending = 0
}

// ReadMessage reads chunks until one message is complete and returns it.
func (p *ChunkReader) ReadMessage() (*Message, error) {
	for {
		msg, err := p.ReadChunk()
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
	}
}

// ReadChunk reads a single chunk.
// Returns the reassembled message when this chunk completes one, nil otherwise.
func (p *ChunkReader) ReadChunk() (*Message, error) {
	format, csID, err := p.readBasicHeader()
	if err != nil {
		return nil, err
	}

	cs, exists := p.chunkStreams[csID]
	if !exists {
		if format != ChunkFmt0 {
			return nil, fmt.Errorf("%w: csid=%d fmt=%d", ErrNoPriorHeader, csID, format)
		}
		if len(p.chunkStreams) >= maxChunkStreams {
			return nil, fmt.Errorf("%w: more than %d chunk streams", ErrReassemblyLimit, maxChunkStreams)
		}
		cs = &ChunkStream{chunkStreamID: csID}
		p.chunkStreams[csID] = cs
	}

	if err := p.readMessageHeader(cs, format); err != nil {
		return nil, err
	}

	if cs.messageLength > p.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, cs.messageLength, p.maxMessageSize)
	}

	// Read chunk payload; the buffer grows with received bytes, not the declared length
	remaining := cs.messageLength - uint32(len(cs.buffer))
	payloadSize := p.chunkSize
	if payloadSize > remaining {
		payloadSize = remaining
	}
	if p.pending+payloadSize > p.maxPending {
		return nil, fmt.Errorf("%w: %d bytes pending", ErrReassemblyLimit, p.pending+payloadSize)
	}
	start := len(cs.buffer)
	cs.buffer = growBuffer(cs.buffer, int(payloadSize), int(cs.messageLength))
	if _, err := io.ReadFull(p.r, cs.buffer[start:]); err != nil {
		return nil, err
	}
	p.pending += payloadSize

	if uint32(len(cs.buffer)) < cs.messageLength {
		return nil, nil
	}

	// Message is complete; ownership of the buffer moves to the message
	msg := &Message{
		Type:      cs.messageType,
		Timestamp: cs.timestamp,
		StreamID:  cs.messageStream,
		Body:      cs.buffer,
	}
	p.pending -= uint32(len(cs.buffer))
	cs.buffer = nil
	return msg, nil
}

// readBasicHeader reads the 1-3 byte basic header.
func (p *ChunkReader) readBasicHeader() (byte, uint32, error) {
	if _, err := io.ReadFull(p.r, p.scratch[:1]); err != nil {
		return 0, 0, err
	}
	format := (p.scratch[0] >> 6) & 0x03
	csID := uint32(p.scratch[0] & 0x3F)

	switch csID {
	case 0:
		// 1-byte extended ID
		if _, err := io.ReadFull(p.r, p.scratch[:1]); err != nil {
			return 0, 0, err
		}
		csID = uint32(p.scratch[0]) + 64
	case 1:
		// 2-byte extended ID, little-endian
		if _, err := io.ReadFull(p.r, p.scratch[:2]); err != nil {
			return 0, 0, err
		}
		csID = uint32(binary.LittleEndian.Uint16(p.scratch[:2])) + 64
	}
	return format, csID, nil
}

// readMessageHeader reads the message header based on format type.
// Fields absent from the header are taken from the chunk stream context.
func (p *ChunkReader) readMessageHeader(cs *ChunkStream, format byte) error {
	switch format {
	case ChunkFmt0:
		// timestamp (3) + length (3) + type (1) + stream ID (4, little-endian)
		hdr := p.scratch[:11]
		if _, err := io.ReadFull(p.r, hdr); err != nil {
			return err
		}
		ts := uint24(hdr[0:3])
		cs.messageLength = uint24(hdr[3:6])
		cs.messageType = hdr[6]
		cs.messageStream = binary.LittleEndian.Uint32(hdr[7:11])
		ts, err := p.resolveExtended(cs, ts)
		if err != nil {
			return err
		}
		cs.timestamp = ts
		// A type 3 chunk following type 0 reuses the absolute timestamp as its delta
		cs.timestampDelta = ts
		p.discard(cs)

	case ChunkFmt1:
		// timestamp delta (3) + length (3) + type (1)
		hdr := p.scratch[:7]
		if _, err := io.ReadFull(p.r, hdr); err != nil {
			return err
		}
		delta := uint24(hdr[0:3])
		cs.messageLength = uint24(hdr[3:6])
		cs.messageType = hdr[6]
		delta, err := p.resolveExtended(cs, delta)
		if err != nil {
			return err
		}
		cs.timestampDelta = delta
		cs.timestamp += delta
		p.discard(cs)

	case ChunkFmt2:
		// timestamp delta (3)
		hdr := p.scratch[:3]
		if _, err := io.ReadFull(p.r, hdr); err != nil {
			return err
		}
		delta, err := p.resolveExtended(cs, uint24(hdr))
		if err != nil {
			return err
		}
		cs.timestampDelta = delta
		cs.timestamp += delta
		p.discard(cs)

	case ChunkFmt3:
		// No header; an extended timestamp is repeated when the context carried one
		if cs.extended {
			if _, err := io.ReadFull(p.r, p.scratch[:4]); err != nil {
				return err
			}
			if !cs.inProgress() {
				cs.timestampDelta = binary.BigEndian.Uint32(p.scratch[:4])
			}
		}
		if !cs.inProgress() {
			cs.timestamp += cs.timestampDelta
		}

	default:
		return ErrInvalidChunkHeader
	}
	return nil
}

// resolveExtended reads the 4-byte extended timestamp when the 24-bit field holds the sentinel.
func (p *ChunkReader) resolveExtended(cs *ChunkStream, field uint32) (uint32, error) {
	cs.extended = field == extendedTimestamp
	if !cs.extended {
		return field, nil
	}
	if _, err := io.ReadFull(p.r, p.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p.scratch[:4]), nil
}

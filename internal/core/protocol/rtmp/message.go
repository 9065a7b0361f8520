// If you are AI: This file handles RTMP message parsing and creation.
// Control message bodies are built and parsed here; commands live in the amf0 package.

package rtmp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message represents a reassembled RTMP message.
type Message struct {
	Type      byte
	Timestamp uint32
	StreamID  uint32
	Body      []byte
}

// IsMedia reports whether the message carries audio or video.
func (m *Message) IsMedia() bool {
	return m.Type == MessageTypeAudio || m.Type == MessageTypeVideo
}

// IsControl reports whether the message is a protocol control message.
func (m *Message) IsControl() bool {
	switch m.Type {
	case MessageTypeSetChunkSize, MessageTypeAbortMessage, MessageTypeAck,
		MessageTypeUserCtrl, MessageTypeWinAckSize, MessageTypeSetPeerBandwidth:
		return true
	}
	return false
}

// ParseUint32 parses a 4-byte big-endian control body (ack, window size, abort).
func ParseUint32(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(body[0:4]), nil
}

// ParseSetChunkSize parses a Set Chunk Size message.
// The most significant bit is reserved and must be zero.
func ParseSetChunkSize(body []byte) (uint32, error) {
	size, err := ParseUint32(body)
	if err != nil {
		return 0, err
	}
	if size == 0 || size > MaxChunkSize {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	return size, nil
}

// ParseSetPeerBandwidth parses a Set Peer Bandwidth message.
func ParseSetPeerBandwidth(body []byte) (uint32, byte, error) {
	if len(body) < 5 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(body[0:4]), body[4], nil
}

// ParseUserControl parses a User Control message into event type and event data.
func ParseUserControl(body []byte) (uint16, []byte, error) {
	if len(body) < 2 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint16(body[0:2]), body[2:], nil
}

// uint32Body creates a 4-byte big-endian body.
func uint32Body(v uint32) []byte {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, v)
	return body
}

// NewSetChunkSize creates a Set Chunk Size message.
func NewSetChunkSize(size uint32) *Message {
	return &Message{Type: MessageTypeSetChunkSize, Body: uint32Body(size)}
}

// NewAck creates an Acknowledgement message for the given sequence number.
func NewAck(sequence uint32) *Message {
	return &Message{Type: MessageTypeAck, Body: uint32Body(sequence)}
}

// NewWindowAckSize creates a Window Acknowledgement Size message.
func NewWindowAckSize(size uint32) *Message {
	return &Message{Type: MessageTypeWinAckSize, Body: uint32Body(size)}
}

// NewSetPeerBandwidth creates a Set Peer Bandwidth message.
func NewSetPeerBandwidth(size uint32, limitType byte) *Message {
	body := make([]byte, 5)
	binary.BigEndian.PutUint32(body[0:4], size)
	body[4] = limitType
	return &Message{Type: MessageTypeSetPeerBandwidth, Body: body}
}

// NewUserControl creates a User Control message with a 4-byte event payload.
func NewUserControl(event uint16, value uint32) *Message {
	body := make([]byte, 6)
	binary.BigEndian.PutUint16(body[0:2], event)
	binary.BigEndian.PutUint32(body[2:6], value)
	return &Message{Type: MessageTypeUserCtrl, Body: body}
}

// NewStreamBegin creates a Stream Begin control message.
func NewStreamBegin(streamID uint32) *Message {
	return NewUserControl(ControlStreamBegin, streamID)
}

// NewStreamEOF creates a Stream EOF control message.
func NewStreamEOF(streamID uint32) *Message {
	return NewUserControl(ControlStreamEOF, streamID)
}

// NewPingResponse answers a ping request carrying the given timestamp.
func NewPingResponse(timestamp uint32) *Message {
	return NewUserControl(ControlPingResponse, timestamp)
}

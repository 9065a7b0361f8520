// If you are AI: This file defines Message, the unit of media flowing through the stream bus.
// Messages are immutable once published; subscribers share the payload.

package bus

// MessageType represents the type of media message.
type MessageType uint8

const (
	// MessageTypeAudio represents an audio frame.
	MessageTypeAudio MessageType = iota
	// MessageTypeVideo represents a video frame.
	MessageTypeVideo
	// MessageTypeData represents metadata or script data.
	MessageTypeData
)

// String returns a human-readable representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeAudio:
		return "audio"
	case MessageTypeVideo:
		return "video"
	case MessageTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// Message represents a unit of media flowing through the bus.
// Ownership: the payload is handed over by the publisher and never modified afterwards.
type Message struct {
	Type      MessageType
	Timestamp uint32
	Payload   []byte
}

// Codec ids carried in the first payload byte of FLV-style audio and video tags.
const (
	soundFormatAAC = 10
	videoCodecAVC  = 7
	videoCodecHEVC = 12
)

// IsSequenceHeader reports whether m carries decoder configuration a late joiner needs.
func (m *Message) IsSequenceHeader() bool {
	if len(m.Payload) < 2 {
		return false
	}
	switch m.Type {
	case MessageTypeAudio:
		return m.Payload[0]>>4 == soundFormatAAC && m.Payload[1] == 0
	case MessageTypeVideo:
		codec := m.Payload[0] & 0x0F
		return (codec == videoCodecAVC || codec == videoCodecHEVC) && m.Payload[1] == 0
	}
	return false
}

// IsKeyframe reports whether m is a video keyframe.
func (m *Message) IsKeyframe() bool {
	return m.Type == MessageTypeVideo && len(m.Payload) > 0 && m.Payload[0]>>4 == 1
}

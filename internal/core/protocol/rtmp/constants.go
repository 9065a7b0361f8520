// If you are AI: This file defines RTMP protocol constants and message types.

package rtmp

// RTMP version constant
const RTMPVersion = 3

// Handshake sizes
const (
	HandshakeSize       = 1536 // C1/S1/C2/S2 (1536 bytes each)
	HandshakeRandomSize = 1528 // Random payload after time (4) + zero/time2 (4)
)

// Default chunk size
const DefaultChunkSize = 128

// MaxChunkSize is the largest chunk size a peer may announce (31 bits).
const MaxChunkSize = 0x7FFFFFFF

// DefaultMaxMessageSize bounds a single reassembled message.
const DefaultMaxMessageSize = 8 * 1024 * 1024

// extendedTimestamp is the 24-bit sentinel announcing a 4-byte extended timestamp.
const extendedTimestamp = 0xFFFFFF

// ackCounterWrap resets the received byte counter before it overflows.
const ackCounterWrap = 0xF0000000

// Message type IDs
const (
	MessageTypeSetChunkSize     = 1
	MessageTypeAbortMessage     = 2
	MessageTypeAck              = 3
	MessageTypeUserCtrl         = 4
	MessageTypeWinAckSize       = 5
	MessageTypeSetPeerBandwidth = 6
	MessageTypeAudio            = 8
	MessageTypeVideo            = 9
	MessageTypeDataAMF3         = 15
	MessageTypeCommandAMF3      = 17
	MessageTypeDataAMF0         = 18
	MessageTypeSharedObjectAMF0 = 19
	MessageTypeCommandAMF0      = 20
)

// Chunk basic header format types
const (
	ChunkFmt0 = 0 // 11-byte header
	ChunkFmt1 = 1 // 7-byte header
	ChunkFmt2 = 2 // 3-byte header
	ChunkFmt3 = 3 // 0-byte header
)

// Well-known chunk stream IDs used on the outgoing path.
const (
	ChunkStreamControl = 2
	ChunkStreamCommand = 3
	ChunkStreamAudio   = 4
	ChunkStreamStatus  = 5
	ChunkStreamVideo   = 6
	ChunkStreamData    = 7
)

// Control message types
const (
	ControlStreamBegin      = 0
	ControlStreamEOF        = 1
	ControlStreamDry        = 2
	ControlSetBufferLength  = 3
	ControlStreamIsRecorded = 4
	ControlPingRequest      = 6
	ControlPingResponse     = 7
)

// Set Peer Bandwidth limit types
const (
	BandwidthLimitHard    = 0
	BandwidthLimitSoft    = 1
	BandwidthLimitDynamic = 2
)

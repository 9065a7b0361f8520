// If you are AI: This file defines FLV framing constants shared by the header, tag and writer code.

package flv

const (
	signature  = "FLV"
	version    = 1
	headerSize = 9

	// TagHeaderSize is the fixed tag prefix: type, size, timestamp, extended timestamp and stream id.
	TagHeaderSize = 11

	// previousTagSize is the trailer after the header and every tag.
	previousTagSize = 4

	flagAudio byte = 0x04
	flagVideo byte = 0x01
)

// Tag types, matching the RTMP message type ids of the same media.
const (
	TagTypeAudio  byte = 8
	TagTypeVideo  byte = 9
	TagTypeScript byte = 18
)

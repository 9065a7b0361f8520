// If you are AI: This file implements FLV file header generation and parsing.
// FLV header is written once at the start of the stream, followed by a zero previous tag size.

package flv

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Header represents an FLV file header.
type Header struct {
	HasAudio bool
	HasVideo bool
}

// Bytes returns the FLV header plus the first previous tag size.
func (h *Header) Bytes() []byte {
	header := make([]byte, headerSize+previousTagSize)
	copy(header[0:3], signature)
	header[3] = version

	flags := byte(0)
	if h.HasAudio {
		flags |= flagAudio
	}
	if h.HasVideo {
		flags |= flagVideo
	}
	header[4] = flags

	// Data offset points past the header
	binary.BigEndian.PutUint32(header[5:9], headerSize)
	return header
}

// NewHeader creates a new FLV header with specified audio/video flags.
func NewHeader(hasAudio, hasVideo bool) *Header {
	return &Header{
		HasAudio: hasAudio,
		HasVideo: hasVideo,
	}
}

// ReadHeader reads the file header and the first previous tag size.
func ReadHeader(r io.Reader) (*Header, error) {
	var b [headerSize + previousTagSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	if string(b[0:3]) != signature {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidTag)
	}
	return &Header{HasAudio: b[4]&flagAudio != 0, HasVideo: b[4]&flagVideo != 0}, nil
}

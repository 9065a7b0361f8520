// If you are AI: This file defines RTMP protocol errors and their classification.
// Protocol errors close the connection; I/O errors are reported as-is.

package rtmp

import (
	"errors"
)

var (
	ErrInvalidVersion     = errors.New("invalid RTMP version")
	ErrHandshakeMismatch  = errors.New("handshake echo mismatch")
	ErrNoPriorHeader      = errors.New("chunk references unknown chunk stream")
	ErrMessageTooLarge    = errors.New("message length exceeds limit")
	ErrReassemblyLimit    = errors.New("reassembly exceeds connection limit")
	ErrInvalidChunkSize   = errors.New("invalid chunk size")
	ErrInvalidChunkHeader = errors.New("invalid chunk header")
	ErrInvalidTransition  = errors.New("invalid session state transition")
	ErrSessionClosed      = errors.New("session closed")
)

// protocolErrors lists errors caused by a misbehaving peer rather than the transport.
var protocolErrors = []error{
	ErrInvalidVersion,
	ErrHandshakeMismatch,
	ErrNoPriorHeader,
	ErrMessageTooLarge,
	ErrReassemblyLimit,
	ErrInvalidChunkSize,
	ErrInvalidChunkHeader,
	ErrInvalidTransition,
}

// IsProtocolError reports whether err is (or wraps) a protocol violation.
func IsProtocolError(err error) bool {
	for _, target := range protocolErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

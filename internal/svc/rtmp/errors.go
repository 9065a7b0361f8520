// If you are AI: This file defines service-level RTMP errors and their classification.

package rtmp

import (
	"errors"
	"io"
	"net"

	rtmpprotocol "streamx/internal/core/protocol/rtmp"
	"streamx/internal/svc/egress"
)

var (
	ErrMediaBeforePublish = errors.New("media received before publish")
	ErrAppRejected        = errors.New("application rejected")
	ErrPublishRejected    = errors.New("publish rejected")
	ErrMalformedCommand   = errors.New("malformed command")
	ErrStreamDeleted      = errors.New("stream deleted by client")
)

// isProtocolViolation reports whether err closes the connection because the peer misbehaved.
func isProtocolViolation(err error) bool {
	return rtmpprotocol.IsProtocolError(err) ||
		errors.Is(err, ErrMediaBeforePublish) ||
		errors.Is(err, ErrMalformedCommand) ||
		errors.Is(err, egress.ErrSinkBackpressure)
}

// isQuietClose reports whether err is an ordinary end of connection.
func isQuietClose(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, rtmpprotocol.ErrSessionClosed) {
		return true
	}
	return errors.Is(err, ErrStreamDeleted)
}

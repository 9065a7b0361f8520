// If you are AI: This file defines stream bus errors.

package bus

import "errors"

var (
	ErrKeyInUse         = errors.New("stream key already in use")
	ErrCapacityExceeded = errors.New("stream capacity exceeded")
	ErrInvalidKey       = errors.New("invalid stream key")
	ErrStreamClosed     = errors.New("stream closed")
	ErrStreamEnded      = errors.New("stream ended")
)

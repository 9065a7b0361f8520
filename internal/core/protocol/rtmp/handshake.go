// If you are AI: This file implements the server side of the RTMP handshake.
// Handshake is allocation-minimal using fixed-size buffers.

package rtmp

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// HandshakePhase tracks progress through the three-phase exchange.
type HandshakePhase int

const (
	PhaseAwaitC0 HandshakePhase = iota
	PhaseAwaitC1
	PhaseAwaitC2
	PhaseDone
)

// String returns the phase name for logs.
func (p HandshakePhase) String() string {
	switch p {
	case PhaseAwaitC0:
		return "await_c0"
	case PhaseAwaitC1:
		return "await_c1"
	case PhaseAwaitC2:
		return "await_c2"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Handshake holds per-connection handshake state.
// It stores the S1 block so the peer's C2 echo can be validated.
type Handshake struct {
	phase HandshakePhase
	epoch time.Time
	c1    [HandshakeSize]byte
	s1    [HandshakeSize]byte
	now   func() time.Time
}

// NewHandshake creates handshake state for a freshly accepted connection.
func NewHandshake() *Handshake {
	return &Handshake{phase: PhaseAwaitC0, now: time.Now}
}

// Phase returns the current handshake phase.
func (h *Handshake) Phase() HandshakePhase {
	return h.phase
}

// Epoch returns the session clock epoch established by S1.
// Zero until the handshake reaches PhaseAwaitC2.
func (h *Handshake) Epoch() time.Time {
	return h.epoch
}

// Perform runs the server side of the handshake on conn.
// Reads C0/C1, sends S0/S1/S2, reads and validates C2.
// Short reads are returned as I/O errors; version or echo problems as protocol errors.
func (h *Handshake) Perform(conn io.ReadWriter) error {
	if err := h.readC0C1(conn); err != nil {
		return err
	}
	if err := h.writeS0S1S2(conn); err != nil {
		return err
	}
	return h.readC2(conn)
}

// readC0C1 reads and checks the version byte, then the C1 block.
func (h *Handshake) readC0C1(r io.Reader) error {
	var c0 [1]byte
	if _, err := io.ReadFull(r, c0[:]); err != nil {
		return fmt.Errorf("read c0: %w", err)
	}
	if c0[0] != RTMPVersion {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, c0[0])
	}
	h.phase = PhaseAwaitC1

	if _, err := io.ReadFull(r, h.c1[:]); err != nil {
		return fmt.Errorf("read c1: %w", err)
	}
	return nil
}

// writeS0S1S2 sends the version echo, our S1 block and the S2 echo of C1 in one write.
func (h *Handshake) writeS0S1S2(w io.Writer) error {
	h.epoch = h.now()

	// S1: time (4) + zero (4) + random (1528)
	binary.BigEndian.PutUint32(h.s1[0:4], 0)
	binary.BigEndian.PutUint32(h.s1[4:8], 0)
	if _, err := rand.Read(h.s1[8:]); err != nil {
		return fmt.Errorf("generate s1: %w", err)
	}

	out := make([]byte, 1+2*HandshakeSize)
	out[0] = RTMPVersion
	copy(out[1:], h.s1[:])

	// S2: echo of C1 with time2 set to when C1 was read
	s2 := out[1+HandshakeSize:]
	copy(s2, h.c1[:])
	binary.BigEndian.PutUint32(s2[4:8], uint32(h.now().Sub(h.epoch).Milliseconds()))

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write s0s1s2: %w", err)
	}
	h.phase = PhaseAwaitC2
	return nil
}

// readC2 reads C2 and checks it echoes the random part of S1.
func (h *Handshake) readC2(r io.Reader) error {
	var c2 [HandshakeSize]byte
	if _, err := io.ReadFull(r, c2[:]); err != nil {
		return fmt.Errorf("read c2: %w", err)
	}
	if !bytes.Equal(c2[8:], h.s1[8:]) {
		return ErrHandshakeMismatch
	}
	h.phase = PhaseDone
	return nil
}

// PerformServerHandshake performs the server side of the RTMP handshake.
// Returns the session epoch on success.
func PerformServerHandshake(conn io.ReadWriter) (time.Time, error) {
	h := NewHandshake()
	if err := h.Perform(conn); err != nil {
		return time.Time{}, err
	}
	return h.Epoch(), nil
}

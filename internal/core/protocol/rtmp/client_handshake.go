// If you are AI: This file implements the client side of the RTMP handshake.
// Used by the push relay and by tests that dial the server.

package rtmp

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// PerformClientHandshake sends C0/C1, reads S0/S1/S2, checks that S2 echoes C1 and answers with C2.
// Echo or version problems are returned as protocol errors.
func PerformClientHandshake(conn io.ReadWriter) error {
	out := make([]byte, 1+HandshakeSize)
	out[0] = RTMPVersion
	c1 := out[1:]
	if _, err := rand.Read(c1[8:]); err != nil {
		return fmt.Errorf("generate c1: %w", err)
	}
	if _, err := conn.Write(out); err != nil {
		return fmt.Errorf("write c0c1: %w", err)
	}

	in := make([]byte, 1+2*HandshakeSize)
	if _, err := io.ReadFull(conn, in); err != nil {
		return fmt.Errorf("read s0s1s2: %w", err)
	}
	if in[0] != RTMPVersion {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, in[0])
	}
	s1, s2 := in[1:1+HandshakeSize], in[1+HandshakeSize:]
	if !bytes.Equal(s2[8:], c1[8:]) {
		return ErrHandshakeMismatch
	}

	// C2 echoes S1; time2 stays zero since the client clock starts here.
	binary.BigEndian.PutUint32(s1[4:8], 0)
	if _, err := conn.Write(s1); err != nil {
		return fmt.Errorf("write c2: %w", err)
	}
	return nil
}

// If you are AI: This file holds byte-level helpers for chunk reassembly: buffer growth and byte counting.

package rtmp

import "io"

// growBuffer extends buf by n bytes, doubling capacity up to limit.
func growBuffer(buf []byte, n, limit int) []byte {
	need := len(buf) + n
	if need <= cap(buf) {
		return buf[:need]
	}
	newCap := 2 * cap(buf)
	if newCap < need {
		newCap = need
	}
	if newCap > limit {
		newCap = limit
	}
	grown := make([]byte, need, newCap)
	copy(grown, buf)
	return grown
}

// uint24 decodes a 3-byte big-endian integer.
func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// countingReader counts bytes for acknowledgement windows.
type countingReader struct {
	r io.Reader
	n uint32
}

// Read implements io.Reader.
func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += uint32(n)
	return n, err
}

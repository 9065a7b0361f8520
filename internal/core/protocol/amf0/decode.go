// If you are AI: This file implements AMF0 decoding for RTMP command and data messages.
// Decoding is bounded by the input slice; nesting depth is capped.

package amf0

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrUnexpectedType = errors.New("unexpected AMF0 type")
	ErrInvalidData    = errors.New("invalid AMF0 data")
)

// maxDepth bounds object nesting.
const maxDepth = 32

// Decoder reads AMF0 values from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// More reports whether unread bytes remain.
func (d *Decoder) More() bool {
	return d.pos < len(d.buf)
}

// Decode reads the next value.
func (d *Decoder) Decode() (Value, error) {
	return d.decode(0)
}

// DecodeAll decodes every value in b.
func DecodeAll(b []byte) ([]Value, error) {
	d := NewDecoder(b)
	var out []Value
	for d.More() {
		v, err := d.Decode()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// next consumes n bytes.
func (d *Decoder) next(n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.pos < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// decode reads one marker-prefixed value.
func (d *Decoder) decode(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrInvalidData)
	}
	m, err := d.next(1)
	if err != nil {
		return nil, err
	}

	switch m[0] {
	case TypeNumber:
		b, err := d.next(8)
		if err != nil {
			return nil, err
		}
		return Number(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
	case TypeBoolean:
		b, err := d.next(1)
		if err != nil {
			return nil, err
		}
		return Boolean(b[0] != 0), nil
	case TypeString:
		s, err := d.readUTF8()
		return String(s), err
	case TypeLongString:
		b, err := d.next(4)
		if err != nil {
			return nil, err
		}
		s, err := d.next(int(binary.BigEndian.Uint32(b)))
		return String(s), err
	case TypeNull:
		return Null{}, nil
	case TypeUndefined:
		return Undefined{}, nil
	case TypeObject:
		props, err := d.readProperties(depth)
		return Object(props), err
	case TypeECMAArray:
		// Count is advisory; entries run until the end marker
		if _, err := d.next(4); err != nil {
			return nil, err
		}
		props, err := d.readProperties(depth)
		return ECMAArray(props), err
	case TypeStrictArray:
		b, err := d.next(4)
		if err != nil {
			return nil, err
		}
		count := binary.BigEndian.Uint32(b)
		if int64(count) > int64(len(d.buf)-d.pos) {
			return nil, fmt.Errorf("%w: array count %d", ErrInvalidData, count)
		}
		arr := make(StrictArray, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := d.decode(depth + 1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case TypeDate:
		// Milliseconds since epoch followed by a time zone that is always zero
		b, err := d.next(10)
		if err != nil {
			return nil, err
		}
		return Number(math.Float64frombits(binary.BigEndian.Uint64(b[:8]))), nil
	default:
		return nil, fmt.Errorf("%w: marker 0x%02x", ErrUnexpectedType, m[0])
	}
}

// readUTF8 reads a 16-bit length prefixed string.
func (d *Decoder) readUTF8() (string, error) {
	b, err := d.next(2)
	if err != nil {
		return "", err
	}
	s, err := d.next(int(binary.BigEndian.Uint16(b)))
	return string(s), err
}

// readProperties reads key/value pairs up to the empty key + object end marker.
func (d *Decoder) readProperties(depth int) ([]Property, error) {
	var props []Property
	for {
		key, err := d.readUTF8()
		if err != nil {
			return nil, err
		}
		if key == "" {
			m, err := d.next(1)
			if err != nil {
				return nil, err
			}
			if m[0] != TypeObjectEnd {
				return nil, fmt.Errorf("%w: missing object end", ErrInvalidData)
			}
			return props, nil
		}
		v, err := d.decode(depth + 1)
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Key: key, Value: v})
	}
}

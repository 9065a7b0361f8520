// If you are AI: This file implements AMF0 encoding for RTMP response messages.

package amf0

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode appends the encoding of v to buf.
func Encode(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case Number:
		var b [9]byte
		b[0] = TypeNumber
		binary.BigEndian.PutUint64(b[1:], math.Float64bits(float64(t)))
		buf.Write(b[:])
	case Boolean:
		buf.WriteByte(TypeBoolean)
		if t {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case String:
		if len(t) > math.MaxUint16 {
			var b [5]byte
			b[0] = TypeLongString
			binary.BigEndian.PutUint32(b[1:], uint32(len(t)))
			buf.Write(b[:])
			buf.WriteString(string(t))
			return nil
		}
		buf.WriteByte(TypeString)
		writeUTF8(buf, string(t))
	case Null, nil:
		buf.WriteByte(TypeNull)
	case Undefined:
		buf.WriteByte(TypeUndefined)
	case Object:
		buf.WriteByte(TypeObject)
		return encodeProperties(buf, t)
	case ECMAArray:
		var b [5]byte
		b[0] = TypeECMAArray
		binary.BigEndian.PutUint32(b[1:], uint32(len(t)))
		buf.Write(b[:])
		return encodeProperties(buf, t)
	case StrictArray:
		var b [5]byte
		b[0] = TypeStrictArray
		binary.BigEndian.PutUint32(b[1:], uint32(len(t)))
		buf.Write(b[:])
		for _, e := range t {
			if err := Encode(buf, e); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedType, v)
	}
	return nil
}

// writeUTF8 writes a 16-bit length prefixed string without a marker.
func writeUTF8(buf *bytes.Buffer, s string) {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	buf.Write(l[:])
	buf.WriteString(s)
}

// encodeProperties writes key/value pairs and the object end marker.
func encodeProperties(buf *bytes.Buffer, props []Property) error {
	for _, p := range props {
		if p.Key == "" || len(p.Key) > math.MaxUint16 {
			return fmt.Errorf("%w: property key length %d", ErrInvalidData, len(p.Key))
		}
		writeUTF8(buf, p.Key)
		if err := Encode(buf, p.Value); err != nil {
			return err
		}
	}
	buf.Write([]byte{0x00, 0x00, TypeObjectEnd})
	return nil
}

// EncodeValues encodes values back to back, the layout of command and data message bodies.
func EncodeValues(values ...Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		if err := Encode(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

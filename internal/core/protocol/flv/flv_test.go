// If you are AI: This file tests FLV header and tag encoding.

package flv

import (
	"bytes"
	"errors"
	"testing"

	"streamx/internal/core/bus"
)

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	inputs := []struct {
		typ     bus.MessageType
		ts      uint32
		payload []byte
	}{
		{bus.MessageTypeData, 0, []byte{0x02, 0x00, 0x0A}},
		{bus.MessageTypeVideo, 0, []byte{0x17, 0x00, 0x00, 0x00, 0x00}},
		{bus.MessageTypeAudio, 23, []byte{0xAF, 0x01, 0x21}},
		{bus.MessageTypeVideo, 0x01020304, []byte{0x27, 0x01}},
	}
	for _, in := range inputs {
		if err := w.WriteMessage(in.typ, in.ts, in.payload); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}

	hdr, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !hdr.HasAudio || !hdr.HasVideo {
		t.Errorf("unexpected header flags %+v", hdr)
	}
	for i, in := range inputs {
		tag, err := ReadTag(&buf)
		if err != nil {
			t.Fatalf("tag %d: %v", i, err)
		}
		want, _ := TagType(in.typ)
		if tag.Type != want || tag.Timestamp != in.ts || !bytes.Equal(tag.Data, in.payload) {
			t.Errorf("tag %d mismatch: %+v", i, tag)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("%d trailing bytes", buf.Len())
	}
}

func TestTagBytesMatchesWriteTo(t *testing.T) {
	tag := NewTag(TagTypeVideo, 1000, []byte{1, 2, 3})
	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), tag.Bytes()) {
		t.Error("Bytes and WriteTo disagree")
	}
}

func TestReadTagBadTrailer(t *testing.T) {
	b := NewTag(TagTypeAudio, 0, []byte{1}).Bytes()
	b[len(b)-1]++
	if _, err := ReadTag(bytes.NewReader(b)); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag, got %v", err)
	}
}

func TestReadHeaderBadSignature(t *testing.T) {
	b := NewHeader(true, false).Bytes()
	b[0] = 'X'
	if _, err := ReadHeader(bytes.NewReader(b)); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag, got %v", err)
	}
}

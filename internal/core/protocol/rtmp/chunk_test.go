// If you are AI: This file contains unit tests for chunk encoding and reassembly.

package rtmp

import (
	"bytes"
	"errors"
	"testing"
)

func payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestChunkRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		csID      uint32
		size      int
		chunkSize uint32
		timestamp uint32
	}{
		{"single chunk", 4, 100, 128, 10},
		{"exact chunk", 6, 128, 128, 20},
		{"many chunks", 6, 1000, 128, 30},
		{"large chunk size", 7, 70000, 4096, 40},
		{"empty body", 3, 0, 128, 0},
		{"two byte csid", 100, 300, 128, 50},
		{"three byte csid", 1000, 300, 128, 60},
		{"extended timestamp", 4, 300, 128, 0x01000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := payload(tt.size, 3)
			var buf bytes.Buffer
			if err := WriteChunk(&buf, tt.csID, MessageTypeVideo, tt.timestamp, 1, body, tt.chunkSize); err != nil {
				t.Fatalf("WriteChunk: %v", err)
			}

			r := NewChunkReader(&buf, 0)
			if err := r.SetChunkSize(tt.chunkSize); err != nil {
				t.Fatal(err)
			}
			msg, err := r.ReadMessage()
			if err != nil {
				t.Fatalf("ReadMessage: %v", err)
			}
			if msg.Type != MessageTypeVideo || msg.StreamID != 1 || msg.Timestamp != tt.timestamp {
				t.Errorf("unexpected header: type=%d stream=%d ts=%d", msg.Type, msg.StreamID, msg.Timestamp)
			}
			if !bytes.Equal(msg.Body, body) {
				t.Error("body mismatch")
			}
			if buf.Len() != 0 {
				t.Errorf("%d trailing bytes not consumed", buf.Len())
			}
		})
	}
}

func TestChunkTimestampDeltas(t *testing.T) {
	var in bytes.Buffer
	// fmt0 csid 4: ts 1000, len 2, audio, stream 1
	in.Write([]byte{0x04, 0x00, 0x03, 0xE8, 0x00, 0x00, 0x02, MessageTypeAudio, 0x01, 0x00, 0x00, 0x00, 0xAA, 0xBB})
	// fmt1: delta 40, len 2, audio
	in.Write([]byte{0x44, 0x00, 0x00, 0x28, 0x00, 0x00, 0x02, MessageTypeAudio, 0xAA, 0xBB})
	// fmt2: delta 40
	in.Write([]byte{0x84, 0x00, 0x00, 0x28, 0xAA, 0xBB})
	// fmt3: reuse delta 40
	in.Write([]byte{0xC4, 0xAA, 0xBB})

	r := NewChunkReader(&in, 0)
	want := []uint32{1000, 1040, 1080, 1120}
	for i, ts := range want {
		msg, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if msg.Timestamp != ts {
			t.Errorf("message %d: timestamp %d, want %d", i, msg.Timestamp, ts)
		}
		if msg.StreamID != 1 || len(msg.Body) != 2 {
			t.Errorf("message %d: stream=%d len=%d", i, msg.StreamID, len(msg.Body))
		}
	}
}

func TestChunkFmt3AfterFmt0UsesTimestampAsDelta(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{0x04, 0x00, 0x00, 0x64, 0x00, 0x00, 0x01, MessageTypeAudio, 0x00, 0x00, 0x00, 0x00, 0x01})
	in.Write([]byte{0xC4, 0x02})

	r := NewChunkReader(&in, 0)
	first, err := r.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if first.Timestamp != 100 || second.Timestamp != 200 {
		t.Errorf("timestamps %d, %d; want 100, 200", first.Timestamp, second.Timestamp)
	}
}

func TestChunkInterleavedStreams(t *testing.T) {
	audio := payload(200, 1)
	video := payload(200, 9)
	var a, v bytes.Buffer
	if err := WriteChunk(&a, ChunkStreamAudio, MessageTypeAudio, 5, 1, audio, 128); err != nil {
		t.Fatal(err)
	}
	if err := WriteChunk(&v, ChunkStreamVideo, MessageTypeVideo, 7, 1, video, 128); err != nil {
		t.Fatal(err)
	}
	// First chunks carry 1 + 11 + 128 bytes, continuations 1 + 72
	ab, vb := a.Bytes(), v.Bytes()
	var in bytes.Buffer
	in.Write(ab[:140])
	in.Write(vb[:140])
	in.Write(vb[140:])
	in.Write(ab[140:])

	r := NewChunkReader(&in, 0)
	first, err := r.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if first.Type != MessageTypeVideo || !bytes.Equal(first.Body, video) {
		t.Error("video message should complete first and be intact")
	}
	second, err := r.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if second.Type != MessageTypeAudio || !bytes.Equal(second.Body, audio) {
		t.Error("audio message should be intact")
	}
}

func TestChunkUnknownStreamRejected(t *testing.T) {
	in := bytes.NewReader([]byte{0x45, 0x00, 0x00, 0x10, 0x00, 0x00, 0x01, MessageTypeAudio, 0x00})
	r := NewChunkReader(in, 0)
	_, err := r.ReadMessage()
	if !errors.Is(err, ErrNoPriorHeader) {
		t.Fatalf("expected ErrNoPriorHeader, got %v", err)
	}
	if !IsProtocolError(err) {
		t.Error("missing prior header should be a protocol error")
	}
}

func TestChunkMessageTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChunk(&buf, 4, MessageTypeVideo, 0, 1, payload(2048, 0), 128); err != nil {
		t.Fatal(err)
	}
	r := NewChunkReader(&buf, 1024)
	_, err := r.ReadMessage()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestChunkAbortDiscardsPartial(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChunk(&buf, 4, MessageTypeVideo, 0, 1, payload(300, 0), 128); err != nil {
		t.Fatal(err)
	}
	r := NewChunkReader(bytes.NewReader(buf.Bytes()[:140]), 0)
	msg, err := r.ReadChunk()
	if err != nil || msg != nil {
		t.Fatalf("expected partial message, got %v, %v", msg, err)
	}
	r.Abort(4)
	if r.chunkStreams[4].inProgress() {
		t.Error("abort should discard partial buffer")
	}
}

func TestChunkBytesRead(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChunk(&buf, 4, MessageTypeAudio, 0, 1, payload(10, 0), 128); err != nil {
		t.Fatal(err)
	}
	total := uint32(buf.Len())
	r := NewChunkReader(&buf, 0)
	if _, err := r.ReadMessage(); err != nil {
		t.Fatal(err)
	}
	if n := r.TakeBytesRead(); n != total {
		t.Errorf("bytes read %d, want %d", n, total)
	}
	if n := r.TakeBytesRead(); n != 0 {
		t.Errorf("counter should reset, got %d", n)
	}
}

func TestChunkInvalidChunkSize(t *testing.T) {
	r := NewChunkReader(&bytes.Buffer{}, 0)
	if err := r.SetChunkSize(0); !errors.Is(err, ErrInvalidChunkSize) {
		t.Errorf("expected ErrInvalidChunkSize, got %v", err)
	}
	if err := r.SetChunkSize(0x80000000); !errors.Is(err, ErrInvalidChunkSize) {
		t.Errorf("expected ErrInvalidChunkSize, got %v", err)
	}
}

func TestParseSetChunkSize(t *testing.T) {
	size, err := ParseSetChunkSize(NewSetChunkSize(4096).Body)
	if err != nil || size != 4096 {
		t.Fatalf("got %d, %v", size, err)
	}
	if _, err := ParseSetChunkSize([]byte{0, 1}); err == nil {
		t.Error("short body should fail")
	}
}

// firstChunk returns the first chunk of a message of size bytes on csID.
func firstChunk(t *testing.T, csID uint32, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteChunk(&buf, csID, MessageTypeVideo, 0, 1, payload(size, 0), DefaultChunkSize); err != nil {
		t.Fatal(err)
	}
	n := 1 + 11 + DefaultChunkSize
	if csID >= 64 {
		n++
	}
	return buf.Bytes()[:n]
}

func TestChunkBufferGrowsWithPayload(t *testing.T) {
	r := NewChunkReader(bytes.NewReader(firstChunk(t, 3, 0x7FFFFF)), 0)
	if msg, err := r.ReadChunk(); err != nil || msg != nil {
		t.Fatalf("expected partial message, got %v, %v", msg, err)
	}
	if c := cap(r.chunkStreams[3].buffer); c > DefaultChunkSize {
		t.Errorf("buffer capacity %d after one chunk, want <= %d", c, DefaultChunkSize)
	}
	if r.Pending() != DefaultChunkSize {
		t.Errorf("pending %d, want %d", r.Pending(), DefaultChunkSize)
	}
}

func TestChunkReassemblyLimits(t *testing.T) {
	t.Run("pending bytes", func(t *testing.T) {
		var in bytes.Buffer
		for cs := uint32(3); cs < 30; cs++ {
			in.Write(firstChunk(t, cs, 1000))
		}
		// 2 * 1024 bytes may be pending: sixteen 128-byte chunks fit, the seventeenth does not.
		r := NewChunkReader(&in, 1024)
		var err error
		for i := 0; err == nil && i < 27; i++ {
			_, err = r.ReadChunk()
		}
		if !errors.Is(err, ErrReassemblyLimit) || !IsProtocolError(err) {
			t.Fatalf("expected ErrReassemblyLimit, got %v", err)
		}
		if r.ChunkStreams() != 17 {
			t.Errorf("failed on chunk stream %d, want the seventeenth", r.ChunkStreams())
		}
	})

	t.Run("chunk streams", func(t *testing.T) {
		var in bytes.Buffer
		for cs := uint32(3); cs < 3+maxChunkStreams+1; cs++ {
			if err := WriteChunk(&in, cs, MessageTypeAudio, 0, 1, payload(4, 0), DefaultChunkSize); err != nil {
				t.Fatal(err)
			}
		}
		r := NewChunkReader(&in, 0)
		for i := 0; i < maxChunkStreams; i++ {
			if _, err := r.ReadMessage(); err != nil {
				t.Fatalf("message %d: %v", i, err)
			}
		}
		if _, err := r.ReadMessage(); !errors.Is(err, ErrReassemblyLimit) {
			t.Fatalf("expected ErrReassemblyLimit, got %v", err)
		}
	})
}

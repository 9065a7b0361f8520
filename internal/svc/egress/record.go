// If you are AI: This file implements the sink that stores records as length-prefixed msgpack frames.
// Frame layout: 4-byte big-endian payload length followed by the msgpack-encoded Record.

package egress

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"streamx/internal/core/bus"
)

// MaxRecordFrame bounds a single stored frame.
const MaxRecordFrame = 16 * 1024 * 1024

// ErrCorruptRecord reports a truncated or oversized frame.
var ErrCorruptRecord = errors.New("corrupt record frame")

// RecordSink writes each stream to streams_dir/app/name.rec.
type RecordSink struct {
	dir string
}

// NewRecordSink creates a record sink rooted at dir.
func NewRecordSink(dir string) *RecordSink {
	return &RecordSink{dir: dir}
}

// Name returns the sink kind.
func (s *RecordSink) Name() string { return "record" }

// Path returns the file a stream is recorded to.
func (s *RecordSink) Path(key bus.StreamKey) string {
	return streamPath(s.dir, key) + ".rec"
}

// Open creates (or truncates) the stream's record file.
func (s *RecordSink) Open(_ context.Context, key bus.StreamKey) (Track, error) {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record file: %w", err)
	}
	return &recordTrack{f: f, w: NewRecordWriter(bufio.NewWriter(f))}, nil
}

type recordTrack struct {
	f *os.File
	w *RecordWriter
}

// Write appends one frame.
func (t *recordTrack) Write(rec Record) error {
	return t.w.Write(rec)
}

// Close flushes and closes the file.
func (t *recordTrack) Close() error {
	flushErr := t.w.Flush()
	closeErr := t.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// RecordWriter encodes records as frames.
type RecordWriter struct {
	w *bufio.Writer
}

// NewRecordWriter wraps w.
func NewRecordWriter(w *bufio.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// Write encodes rec as one frame.
func (rw *RecordWriter) Write(rec Record) error {
	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if len(payload) > MaxRecordFrame {
		return fmt.Errorf("%w: %d bytes", ErrCorruptRecord, len(payload))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := rw.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = rw.w.Write(payload)
	return err
}

// Flush flushes buffered frames.
func (rw *RecordWriter) Flush() error {
	return rw.w.Flush()
}

// RecordReader decodes frames written by RecordWriter.
type RecordReader struct {
	r io.Reader
}

// NewRecordReader creates a reader over r.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: r}
}

// Next returns the next record, or io.EOF at a clean end of stream.
func (rr *RecordReader) Next() (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(rr.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: length prefix: %v", ErrCorruptRecord, err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxRecordFrame {
		return Record{}, fmt.Errorf("%w: frame size %d", ErrCorruptRecord, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(rr.r, payload); err != nil {
		return Record{}, fmt.Errorf("%w: payload: %v", ErrCorruptRecord, err)
	}
	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: decode: %v", ErrCorruptRecord, err)
	}
	return rec, nil
}

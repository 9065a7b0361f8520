// If you are AI: This file implements the sink that drops every record.

package egress

import (
	"context"
	"sync/atomic"

	"streamx/internal/core/bus"
)

// DiscardSink accepts and drops records; used when no segmenter is wanted.
type DiscardSink struct {
	records atomic.Uint64
}

// NewDiscardSink creates a discard sink.
func NewDiscardSink() *DiscardSink {
	return &DiscardSink{}
}

// Name returns the sink kind.
func (s *DiscardSink) Name() string { return "discard" }

// Open returns a track that counts and drops records.
func (s *DiscardSink) Open(context.Context, bus.StreamKey) (Track, error) {
	return discardTrack{sink: s}, nil
}

// Records returns how many records were dropped.
func (s *DiscardSink) Records() uint64 {
	return s.records.Load()
}

type discardTrack struct {
	sink *DiscardSink
}

// Write drops rec.
func (t discardTrack) Write(Record) error {
	t.sink.records.Add(1)
	return nil
}

// Close is a no-op.
func (t discardTrack) Close() error { return nil }

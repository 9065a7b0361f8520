// If you are AI: This file defines the segmenter egress contract and the sink factory.
// A Sink is opened once per publish and receives that stream's records in arrival order.

package egress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
)

var (
	ErrSinkBackpressure = errors.New("segmenter sink backpressure")
	ErrForwarderClosed  = errors.New("forwarder closed")
	ErrDrainTimeout     = errors.New("forwarder drain timed out")
)

// Record is one forwarded media or data message.
// Payload is the unmodified RTMP message body.
type Record struct {
	Timestamp uint32          `msgpack:"ts"`
	Type      bus.MessageType `msgpack:"type"`
	Payload   []byte          `msgpack:"payload"`
}

// Track receives the records of one published stream.
// Write and Close are called from a single forwarder goroutine.
type Track interface {
	Write(rec Record) error
	Close() error
}

// Sink opens a Track per published stream.
type Sink interface {
	Name() string
	Open(ctx context.Context, key bus.StreamKey) (Track, error)
}

// New builds the sink selected by cfg.Kind.
func New(cfg config.SegmenterConfig, logger *zap.Logger) (Sink, error) {
	switch cfg.Kind {
	case config.SegmenterFFmpeg:
		return NewFFmpegSink(cfg, logger), nil
	case config.SegmenterRecord:
		return NewRecordSink(cfg.StreamsDir), nil
	case config.SegmenterDiscard:
		return NewDiscardSink(), nil
	default:
		return nil, fmt.Errorf("unknown segmenter kind %q", cfg.Kind)
	}
}

// streamPath joins the sanitized app and name under root.
func streamPath(root string, key bus.StreamKey) string {
	return filepath.Join(root, safeComponent(key.App), safeComponent(key.Name))
}

// safeComponent maps a client-supplied name to a single path element.
func safeComponent(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_").Replace(s)
	if s == "" || strings.HasPrefix(s, ".") {
		s = "_" + s
	}
	return s
}

// If you are AI: This file copies a live bus subscription into an FLV stream for HTTP and WebSocket players.

package flv

import (
	"context"
	"errors"

	"streamx/internal/core/bus"
)

// Relay writes sub to w until the stream ends, ctx is done, or a write fails.
// flush is called after every tag and marks a frame boundary for the transport.
// Media is held back until the first video keyframe (or first audio frame of an
// audio-only stream) and timestamps are rebased so playback starts at zero.
// Returns nil when the stream ended normally.
func Relay(ctx context.Context, sub *bus.Subscriber, w *Writer, flush func() error) error {
	var (
		started  bool
		hasVideo bool
		base     uint32
	)
	for {
		msg, err := sub.Next(ctx)
		if errors.Is(err, bus.ErrStreamEnded) {
			return nil
		}
		if err != nil {
			return err
		}

		ts := uint32(0)
		switch {
		case msg.Type == bus.MessageTypeData || msg.IsSequenceHeader():
			if msg.Type == bus.MessageTypeVideo {
				hasVideo = true
			}
		case !started:
			if msg.Type == bus.MessageTypeVideo {
				hasVideo = true
			}
			if !msg.IsKeyframe() && (hasVideo || msg.Type != bus.MessageTypeAudio) {
				continue
			}
			started, base = true, msg.Timestamp
		default:
			if msg.Timestamp > base {
				ts = msg.Timestamp - base
			}
		}

		if err := w.WriteMessage(msg.Type, ts, msg.Payload); err != nil {
			return err
		}
		if flush != nil {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

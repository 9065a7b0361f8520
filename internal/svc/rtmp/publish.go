// If you are AI: This file handles the publish path: registration, media ingest and egress forwarding.

package rtmp

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/amf0"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
	"streamx/internal/svc/egress"
)

// streamName strips query parameters and slashes from a publish or play name.
func streamName(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return strings.Trim(raw, "/")
}

// handlePublish claims the stream key and opens the egress track.
func (s *ServiceSession) handlePublish(cmd *amf0.Command, streamID uint32) error {
	if s.State() != rtmpprotocol.StateConnected {
		return s.sendError(cmd.TransactionID, codeCallFailed, "stream already active")
	}
	raw, _ := cmd.StringArg(0)
	name := streamName(raw)
	if name == "" {
		s.server.metrics.IncPublishRejected()
		_ = s.sendStatus(streamID, "error", codePublishBadName, "missing stream name")
		return fmt.Errorf("%w: empty stream name", ErrPublishRejected)
	}

	s.mu.Lock()
	key := bus.NewStreamKey(s.app, name)
	s.mu.Unlock()
	log := s.logger.With(zap.String("stream", key.String()))

	stream, err := s.server.registry.Register(key, bus.Owner{SessionID: s.id, RemoteAddr: s.remoteAddr})
	if err != nil {
		s.server.metrics.IncPublishRejected()
		code := codePublishFailed
		switch {
		case errors.Is(err, bus.ErrKeyInUse):
			code = codePublishBadName
		case errors.Is(err, bus.ErrCapacityExceeded):
			code = codePublishRejected
		}
		log.Info("publish rejected", zap.Error(err))
		_ = s.sendStatus(streamID, "error", code, err.Error())
		return fmt.Errorf("%w: %v", ErrPublishRejected, err)
	}

	track, err := s.server.sink.Open(s.ctx, key)
	if err != nil {
		s.server.registry.Unregister(key, s.id)
		s.server.metrics.IncPublishRejected()
		log.Error("failed to open egress", zap.String("sink", s.server.sink.Name()), zap.Error(err))
		_ = s.sendStatus(streamID, "error", codePublishFailed, "egress unavailable")
		return fmt.Errorf("%w: %v", ErrPublishRejected, err)
	}
	pub := &publication{
		key:       key,
		streamID:  streamID,
		stream:    stream,
		forwarder: egress.NewForwarder(track, s.server.cfg.MaxPendingMessages, log),
	}

	s.mu.Lock()
	if err := s.Transition(rtmpprotocol.StatePublishing); err != nil {
		s.mu.Unlock()
		s.endPublish(pub)
		return err
	}
	s.publication = pub
	s.mu.Unlock()

	if err := s.WriteControl(rtmpprotocol.NewStreamBegin(streamID)); err != nil {
		return err
	}
	if err := s.sendStatus(streamID, "status", codePublishStart, key.String()+" is now published."); err != nil {
		return err
	}
	s.server.metrics.IncPublishStarted()
	log.Info("publish started", zap.String("type", publishType(cmd)))
	return nil
}

// publishType returns the publishing type argument, "live" when absent.
func publishType(cmd *amf0.Command) string {
	if t, ok := cmd.StringArg(1); ok && t != "" {
		return t
	}
	return "live"
}

// currentPublication returns the active publication or nil.
func (s *ServiceSession) currentPublication() *publication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publication
}

// handleMedia forwards an audio or video message to egress and fans it out to players.
func (s *ServiceSession) handleMedia(msg *rtmpprotocol.Message) error {
	pub := s.currentPublication()
	if pub == nil {
		return fmt.Errorf("%w: type %d in state %s", ErrMediaBeforePublish, msg.Type, s.State())
	}
	t := bus.MessageTypeVideo
	if msg.Type == rtmpprotocol.MessageTypeAudio {
		t = bus.MessageTypeAudio
	}
	return s.ingest(pub, t, msg.Timestamp, msg.Body)
}

// handleData forwards script data while publishing. @setDataFrame is unwrapped
// so egress and players see a plain onMetaData tag.
func (s *ServiceSession) handleData(msg *rtmpprotocol.Message, body []byte) error {
	pub := s.currentPublication()
	if pub == nil {
		s.logger.Debug("ignoring data message outside publish", zap.Int("size", len(body)))
		return nil
	}
	values, err := amf0.DecodeAll(body)
	if err != nil || len(values) == 0 {
		s.logger.Warn("dropping malformed data message", zap.Error(err), zap.Int("size", len(body)))
		return nil
	}
	if name, _ := amf0.AsString(values[0]); name == "@setDataFrame" {
		values = values[1:]
		if len(values) == 0 {
			s.logger.Warn("dropping empty @setDataFrame", zap.Int("size", len(body)))
			return nil
		}
		if body, err = amf0.EncodeValues(values...); err != nil {
			return err
		}
	}
	if name, _ := amf0.AsString(values[0]); name == "onMetaData" && len(values) > 1 {
		if meta, ok := amf0.ToNative(values[1]).(map[string]any); ok {
			pub.stream.SetMetadata(meta)
			s.logger.Debug("stream metadata updated", zap.Int("fields", len(meta)))
		}
	}
	return s.ingest(pub, bus.MessageTypeData, msg.Timestamp, body)
}

// ingest hands one message to the forwarder and the stream bus.
func (s *ServiceSession) ingest(pub *publication, t bus.MessageType, ts uint32, payload []byte) error {
	if err := pub.forwarder.Enqueue(egress.Record{Timestamp: ts, Type: t, Payload: payload}); err != nil {
		if errors.Is(err, egress.ErrSinkBackpressure) {
			s.server.metrics.IncEgressDrop()
		}
		return fmt.Errorf("egress %s: %w", pub.key, err)
	}
	pub.stream.Publish(&bus.Message{Type: t, Timestamp: ts, Payload: payload})
	s.server.metrics.AddMessage(len(payload))
	return nil
}

// endPublish releases the stream key, which ends its players, then drains egress.
func (s *ServiceSession) endPublish(pub *publication) {
	s.server.registry.Unregister(pub.key, s.id)
	log := s.logger.With(zap.String("stream", pub.key.String()))
	if err := pub.forwarder.Close(s.server.closeTimeout); err != nil {
		log.Warn("egress did not close cleanly", zap.Error(err))
	}
	log.Info("publish ended")
}

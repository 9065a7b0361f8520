// If you are AI: This file handles the play path: subscribing to a live stream and relaying it.

package rtmp

import (
	"errors"

	"go.uber.org/zap"

	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/amf0"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
)

// handlePlay attaches the session to a live stream. A missing stream is reported but keeps the connection.
func (s *ServiceSession) handlePlay(cmd *amf0.Command, streamID uint32) error {
	if s.State() != rtmpprotocol.StateConnected {
		return s.sendError(cmd.TransactionID, codeCallFailed, "stream already active")
	}
	raw, _ := cmd.StringArg(0)
	s.mu.Lock()
	key := bus.NewStreamKey(s.app, streamName(raw))
	s.mu.Unlock()

	stream := s.server.registry.Lookup(key)
	if !key.Valid() || stream == nil {
		return s.sendStatus(streamID, "error", codePlayNotFound, "no such stream "+key.String())
	}
	sub, err := stream.AttachSubscriber(s.server.cfg.PlayerBuffer)
	if err != nil {
		return s.sendStatus(streamID, "error", codePlayNotFound, "no such stream "+key.String())
	}
	pb := &playback{key: key, streamID: streamID, stream: stream, sub: sub}

	s.mu.Lock()
	if err := s.Transition(rtmpprotocol.StatePlaying); err != nil {
		s.mu.Unlock()
		s.endPlay(pb)
		return err
	}
	s.playback = pb
	s.mu.Unlock()

	if err := s.WriteControl(rtmpprotocol.NewStreamBegin(streamID)); err != nil {
		return err
	}
	if err := s.sendStatus(streamID, "status", codePlayReset, "Playing and resetting "+key.String()+"."); err != nil {
		return err
	}
	if err := s.sendStatus(streamID, "status", codePlayStart, "Started playing "+key.String()+"."); err != nil {
		return err
	}
	s.server.metrics.IncPlayStarted()
	s.logger.Info("play started", zap.String("stream", key.String()))

	go s.relay(pb)
	return nil
}

// relay copies stream messages to the player until the stream ends or the session closes.
func (s *ServiceSession) relay(pb *playback) {
	for {
		m, err := pb.sub.Next(s.ctx)
		if err != nil {
			if errors.Is(err, bus.ErrStreamEnded) {
				_ = s.WriteControl(rtmpprotocol.NewStreamEOF(pb.streamID))
				_ = s.sendStatus(pb.streamID, "status", codePlayUnpublish, pb.key.String()+" is now unpublished.")
				s.logger.Info("stream ended, closing player", zap.String("stream", pb.key.String()))
				s.Close()
			}
			return
		}
		if err := s.WriteMessage(playerChunkStream(m.Type), &rtmpprotocol.Message{
			Type:      playerMessageType(m.Type),
			Timestamp: m.Timestamp,
			StreamID:  pb.streamID,
			Body:      m.Payload,
		}); err != nil {
			s.logger.Debug("player write failed", zap.Error(err))
			s.Close()
			return
		}
	}
}

// playerChunkStream picks the outgoing chunk stream for a media type.
func playerChunkStream(t bus.MessageType) uint32 {
	switch t {
	case bus.MessageTypeAudio:
		return rtmpprotocol.ChunkStreamAudio
	case bus.MessageTypeVideo:
		return rtmpprotocol.ChunkStreamVideo
	default:
		return rtmpprotocol.ChunkStreamData
	}
}

// playerMessageType maps a bus message type to the RTMP message type.
func playerMessageType(t bus.MessageType) byte {
	switch t {
	case bus.MessageTypeAudio:
		return rtmpprotocol.MessageTypeAudio
	case bus.MessageTypeVideo:
		return rtmpprotocol.MessageTypeVideo
	default:
		return rtmpprotocol.MessageTypeDataAMF0
	}
}

// endPlay detaches the player from its stream.
func (s *ServiceSession) endPlay(pb *playback) {
	pb.stream.DetachSubscriber(pb.sub.ID())
	s.logger.Debug("play ended", zap.String("stream", pb.key.String()),
		zap.Uint64("dropped", pb.sub.Dropped()))
}

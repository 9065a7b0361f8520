// If you are AI: This file handles RTMP command messages (connect, createStream, publish, play...).
// Replies go out on the command chunk stream; onStatus goes out on the status chunk stream.

package rtmp

import (
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"streamx/internal/core/protocol/amf0"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
)

// Status codes sent in onStatus and _error replies.
const (
	codeConnectSuccess   = "NetConnection.Connect.Success"
	codeConnectRejected  = "NetConnection.Connect.Rejected"
	codeCallFailed       = "NetConnection.Call.Failed"
	codePublishStart     = "NetStream.Publish.Start"
	codePublishBadName   = "NetStream.Publish.BadName"
	codePublishFailed    = "NetStream.Publish.Failed"
	codePublishRejected  = "NetStream.Publish.Rejected"
	codeUnpublishSuccess = "NetStream.Unpublish.Success"
	codePlayReset        = "NetStream.Play.Reset"
	codePlayStart        = "NetStream.Play.Start"
	codePlayNotFound     = "NetStream.Play.StreamNotFound"
	codePlayUnpublish    = "NetStream.Play.UnpublishNotify"
)

// handleCommand decodes and dispatches an RTMP command message.
func (s *ServiceSession) handleCommand(msg *rtmpprotocol.Message, body []byte) error {
	cmd, err := amf0.DecodeCommand(body)
	if err != nil {
		s.logDecodeError(body, err)
		return fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	s.logger.Debug("command", zap.String("name", cmd.Name), zap.Float64("txn", cmd.TransactionID))

	if cmd.Name != "connect" && !s.isConnected() {
		return s.sendError(cmd.TransactionID, codeCallFailed, "connect first")
	}

	switch cmd.Name {
	case "connect":
		return s.handleConnect(cmd)
	case "createStream":
		return s.handleCreateStream(cmd)
	case "releaseStream", "FCPublish", "FCUnpublish", "getStreamLength":
		return s.sendResult(cmd.TransactionID, amf0.Null{})
	case "_checkbw":
		if err := s.sendResult(cmd.TransactionID, amf0.Null{}); err != nil {
			return err
		}
		return s.sendCommand(rtmpprotocol.ChunkStreamCommand, 0, "onBWCheck", 0, amf0.Null{})
	case "publish":
		return s.handlePublish(cmd, msg.StreamID)
	case "play":
		return s.handlePlay(cmd, msg.StreamID)
	case "deleteStream", "closeStream":
		return s.handleDeleteStream(cmd)
	case "receiveAudio", "receiveVideo", "pause", "_result", "onBWDone":
		return nil
	default:
		s.logger.Debug("unknown command", zap.String("name", cmd.Name))
		return s.sendError(cmd.TransactionID, codeCallFailed, "unsupported command "+cmd.Name)
	}
}

// isConnected reports whether connect succeeded on this session.
func (s *ServiceSession) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// handleConnect validates the application and answers with the connect burst.
func (s *ServiceSession) handleConnect(cmd *amf0.Command) error {
	props := cmd.Properties()
	app, _ := props.String("app")
	app = strings.Trim(app, "/")
	if i := strings.IndexByte(app, '?'); i >= 0 {
		app = app[:i]
	}
	tcURL, _ := props.String("tcUrl")
	encoding, _ := props.Number("objectEncoding")

	if s.isConnected() {
		return s.sendError(cmd.TransactionID, codeCallFailed, "already connected")
	}
	if app == "" || !s.server.cfg.AppAllowed(app) {
		s.logger.Info("connect rejected", zap.String("app", app))
		_ = s.sendError(cmd.TransactionID, codeConnectRejected, "application not allowed")
		return fmt.Errorf("%w: %q", ErrAppRejected, app)
	}

	s.mu.Lock()
	s.app, s.tcURL, s.connected = app, tcURL, true
	s.mu.Unlock()
	s.logger = s.logger.With(zap.String("app", app))

	cfg := s.server.cfg
	if err := s.WriteControl(rtmpprotocol.NewWindowAckSize(cfg.WindowAckSize)); err != nil {
		return err
	}
	if err := s.WriteControl(rtmpprotocol.NewSetPeerBandwidth(cfg.PeerBandwidth, rtmpprotocol.BandwidthLimitDynamic)); err != nil {
		return err
	}
	if err := s.SetOutgoingChunkSize(cfg.ChunkSize); err != nil {
		return err
	}

	serverProps := amf0.Object{
		{Key: "fmsVer", Value: amf0.String("FMS/3,0,1,123")},
		{Key: "capabilities", Value: amf0.Number(31)},
	}
	info := append(amf0.Status("status", codeConnectSuccess, "Connection succeeded."),
		amf0.Property{Key: "objectEncoding", Value: amf0.Number(encoding)})
	if err := s.sendCommand(rtmpprotocol.ChunkStreamCommand, 0, "_result", cmd.TransactionID, serverProps, info); err != nil {
		return err
	}
	if err := s.WriteControl(rtmpprotocol.NewStreamBegin(0)); err != nil {
		return err
	}
	s.logger.Info("client connected", zap.String("tc_url", tcURL))
	return s.sendCommand(rtmpprotocol.ChunkStreamCommand, 0, "onBWDone", 0, amf0.Null{})
}

// handleCreateStream allocates a message stream id.
func (s *ServiceSession) handleCreateStream(cmd *amf0.Command) error {
	s.mu.Lock()
	s.nextStreamID++
	id := s.nextStreamID
	s.mu.Unlock()
	return s.sendResult(cmd.TransactionID, amf0.Null{}, amf0.Number(id))
}

// handleDeleteStream ends the publish or play binding and closes the session.
func (s *ServiceSession) handleDeleteStream(cmd *amf0.Command) error {
	s.mu.Lock()
	pub, play := s.publication, s.playback
	s.mu.Unlock()
	if pub == nil && play == nil {
		return nil
	}
	if pub != nil {
		_ = s.sendStatus(pub.streamID, "status", codeUnpublishSuccess, pub.key.String()+" is now unpublished.")
	}
	s.logger.Debug("stream deleted by client", zap.String("command", cmd.Name))
	return ErrStreamDeleted
}

// sendResult sends a _result reply for txn.
func (s *ServiceSession) sendResult(txn float64, obj amf0.Value, args ...amf0.Value) error {
	return s.sendCommand(rtmpprotocol.ChunkStreamCommand, 0, "_result", txn, obj, args...)
}

// sendError sends an _error reply carrying an error status object.
func (s *ServiceSession) sendError(txn float64, code, description string) error {
	return s.sendCommand(rtmpprotocol.ChunkStreamCommand, 0, "_error", txn, amf0.Null{},
		amf0.Status("error", code, description))
}

// sendStatus sends onStatus on the given message stream.
func (s *ServiceSession) sendStatus(streamID uint32, level, code, description string) error {
	return s.sendCommand(rtmpprotocol.ChunkStreamStatus, streamID, "onStatus", 0, amf0.Null{},
		amf0.Status(level, code, description))
}

// sendCommand encodes and writes an AMF0 command message.
func (s *ServiceSession) sendCommand(csID, streamID uint32, name string, txn float64, obj amf0.Value, args ...amf0.Value) error {
	cmd := &amf0.Command{Name: name, TransactionID: txn, Object: obj, Args: args}
	body, err := cmd.Encode()
	if err != nil {
		return err
	}
	return s.WriteMessage(csID, &rtmpprotocol.Message{
		Type:     rtmpprotocol.MessageTypeCommandAMF0,
		StreamID: streamID,
		Body:     body,
	})
}

// logDecodeError logs a command that failed to decode with a bounded hex dump.
func (s *ServiceSession) logDecodeError(body []byte, err error) {
	dump := body
	if len(dump) > 64 {
		dump = dump[:64]
	}
	s.logger.Warn("failed to decode command",
		zap.Error(err),
		zap.Int("size", len(body)),
		zap.String("hex", hex.EncodeToString(dump)))
}

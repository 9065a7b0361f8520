// If you are AI: This file manages a single RTMP connection on the service side.
// The read loop owns dispatch; a player relay goroutine may write concurrently through the chunk writer.

package rtmp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"streamx/internal/core/bus"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
	"streamx/internal/logging"
	"streamx/internal/svc/egress"
)

// ServiceSession is one client connection with its publish or play binding.
type ServiceSession struct {
	*rtmpprotocol.Session

	id         string
	conn       net.Conn
	remoteAddr string
	server     *Server
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	app          string
	tcURL        string
	connected    bool
	nextStreamID uint32
	publication  *publication
	playback     *playback

	closeOnce sync.Once
}

// publication is the ingest side of a publishing session.
type publication struct {
	key       bus.StreamKey
	streamID  uint32
	stream    *bus.Stream
	forwarder *egress.Forwarder
}

// playback is the relay side of a playing session.
type playback struct {
	key      bus.StreamKey
	streamID uint32
	stream   *bus.Stream
	sub      *bus.Subscriber
}

// newServiceSession wraps conn with a fresh session id and child logger.
func newServiceSession(s *Server, conn net.Conn) *ServiceSession {
	ctx, cancel := context.WithCancel(s.ctx)
	id := uuid.NewString()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &ServiceSession{
		Session:    rtmpprotocol.NewSession(conn, s.cfg.MaxMessageSize),
		id:         id,
		conn:       conn,
		remoteAddr: remote,
		server:     s,
		logger:     logging.Session(s.logger, id, remote),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ID returns the session identifier.
func (s *ServiceSession) ID() string {
	return s.id
}

// run performs the handshake and dispatches messages until an error ends the session.
func (s *ServiceSession) run() error {
	s.setDeadline()
	if err := s.PerformHandshake(); err != nil {
		s.server.metrics.IncHandshakeFailure()
		s.logger.Debug("handshake failed", zap.Error(err))
		return err
	}
	s.logger.Debug("handshake complete")

	for {
		s.setDeadline()
		msg, err := s.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.dispatch(msg); err != nil {
			return err
		}
	}
}

// setDeadline arms the idle read timeout. Players may stay silent while receiving, so they get none.
func (s *ServiceSession) setDeadline() {
	timeout := s.server.cfg.ReadTimeout
	switch {
	case s.State() == rtmpprotocol.StatePlaying:
		_ = s.conn.SetReadDeadline(time.Time{})
	case timeout > 0:
		_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
	}
}

// dispatch routes one application message by type.
func (s *ServiceSession) dispatch(msg *rtmpprotocol.Message) error {
	switch msg.Type {
	case rtmpprotocol.MessageTypeCommandAMF0:
		return s.handleCommand(msg, msg.Body)
	case rtmpprotocol.MessageTypeCommandAMF3:
		return s.handleCommand(msg, stripAMF3Prefix(msg.Body))
	case rtmpprotocol.MessageTypeAudio, rtmpprotocol.MessageTypeVideo:
		return s.handleMedia(msg)
	case rtmpprotocol.MessageTypeDataAMF0:
		return s.handleData(msg, msg.Body)
	case rtmpprotocol.MessageTypeDataAMF3:
		return s.handleData(msg, stripAMF3Prefix(msg.Body))
	default:
		s.logger.Debug("ignoring message", zap.Uint8("type", msg.Type), zap.Int("size", len(msg.Body)))
		return nil
	}
}

// stripAMF3Prefix drops the format selector byte of AMF3-wrapped messages.
func stripAMF3Prefix(body []byte) []byte {
	if len(body) > 0 && body[0] == 0 {
		return body[1:]
	}
	return body
}

// Close tears down the publish or play binding and the connection. Safe to call more than once.
func (s *ServiceSession) Close() {
	s.closeOnce.Do(func() {
		s.Session.Close()
		s.cancel()
		_ = s.conn.Close()

		s.mu.Lock()
		pub, play := s.publication, s.playback
		s.publication, s.playback = nil, nil
		s.mu.Unlock()

		if pub != nil {
			s.endPublish(pub)
		}
		if play != nil {
			s.endPlay(play)
		}
	})
}

// Info returns a snapshot for the API.
func (s *ServiceSession) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{
		ID:         s.id,
		RemoteAddr: s.remoteAddr,
		State:      s.State().String(),
		App:        s.app,
		UptimeMS:   s.Uptime(),
	}
	switch {
	case s.publication != nil:
		info.Stream = s.publication.key.String()
		info.EgressPending = s.publication.forwarder.Pending()
	case s.playback != nil:
		info.Stream = s.playback.key.String()
	}
	return info
}

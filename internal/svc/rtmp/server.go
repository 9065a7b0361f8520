// If you are AI: This file implements the RTMP server that accepts connections.
// One goroutine per connection; shutdown closes the listener, then every live session.

package rtmp

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
	"streamx/internal/metrics"
	"streamx/internal/svc/egress"
)

// Server represents an RTMP ingest server.
type Server struct {
	registry     *bus.Registry
	sink         egress.Sink
	cfg          config.IngestConfig
	closeTimeout time.Duration
	metrics      *metrics.Collector
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	sessions map[string]*ServiceSession
	wg       sync.WaitGroup
}

// Options carries the collaborators of a Server.
type Options struct {
	Registry     *bus.Registry
	Sink         egress.Sink
	Ingest       config.IngestConfig
	CloseTimeout time.Duration // forwarder drain limit when a stream ends
	Metrics      *metrics.Collector
	Logger       *zap.Logger
}

// NewServer creates a new RTMP server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sink == nil {
		opts.Sink = egress.NewDiscardSink()
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		registry:     opts.Registry,
		sink:         opts.Sink,
		cfg:          opts.Ingest,
		closeTimeout: opts.CloseTimeout,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		ctx:          ctx,
		cancel:       cancel,
		sessions:     make(map[string]*ServiceSession),
	}
}

// Listen starts listening on the specified address.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed.
// Returns nil when the server was shut down.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("rtmp server: Listen not called")
	}
	s.logger.Info("rtmp server listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		go s.ServeConn(conn)
	}
}

// ServeConn runs one RTMP session on conn and returns when it ends.
func (s *Server) ServeConn(conn net.Conn) {
	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	session := newServiceSession(s, conn)
	if !s.track(session) {
		_ = conn.Close()
		return
	}
	defer s.untrack(session)

	err := session.run()
	session.Close()

	switch {
	case isQuietClose(err):
		session.logger.Debug("connection closed")
	case isProtocolViolation(err):
		s.metrics.IncProtocolError()
		session.logger.Warn("protocol violation", zap.Error(err))
	default:
		session.logger.Info("connection ended", zap.Error(err))
	}
}

// track registers a live session; it fails once shutdown started.
func (s *Server) track(session *ServiceSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.sessions[session.id] = session
	// Added under mu after the ctx check, so Shutdown's Wait never races an Add.
	s.wg.Add(1)
	return true
}

// untrack forgets a finished session and releases its Shutdown wait slot.
func (s *Server) untrack(session *ServiceSession) {
	s.mu.Lock()
	delete(s.sessions, session.id)
	s.mu.Unlock()
	s.wg.Done()
}

// SessionInfo describes a live connection.
type SessionInfo struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`
	State      string `json:"state"`
	App        string `json:"app,omitempty"`
	Stream     string `json:"stream,omitempty"`
	UptimeMS   uint32 `json:"uptime_ms"`
	// EgressPending is the forwarder queue depth of a publishing session.
	EgressPending int `json:"egress_pending,omitempty"`
}

// Sessions returns a snapshot of live sessions sorted by id.
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	list := make([]*ServiceSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		list = append(list, session)
	}
	s.mu.Unlock()

	infos := make([]SessionInfo, 0, len(list))
	for _, session := range list {
		infos = append(infos, session.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Shutdown stops accepting, closes every session and waits for them to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	sessions := make([]*ServiceSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

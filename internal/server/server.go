// If you are AI: This file assembles the process: registry, RTMP ingest, egress, notifications, relays and HTTP.
// Start brings listeners up; Shutdown stops them in reverse order.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
	"streamx/internal/metrics"
	"streamx/internal/svc/egress"
	"streamx/internal/svc/notify"
	"streamx/internal/svc/relay"
	"streamx/internal/svc/rtmp"
)

// Server wraps every listener and its dependencies.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *bus.Registry
	metrics  *metrics.Collector
	sink     egress.Sink
	notifier notify.Notifier
	rtmp     *rtmp.Server
	relays   *relay.Manager

	rtmpAddr   string
	httpAddr   string
	healthAddr string

	httpServer   *http.Server
	healthServer *http.Server
	httpLn       net.Listener
	healthLn     net.Listener

	ready   atomic.Bool
	errs    chan error
	wg      sync.WaitGroup
	watchID uint64
	cancel  context.CancelFunc
}

// Option adjusts a Server before Start.
type Option func(*Server)

// WithListenAddrs overrides the listen addresses derived from the configured ports.
func WithListenAddrs(rtmpAddr, httpAddr, healthAddr string) Option {
	return func(s *Server) {
		s.rtmpAddr, s.httpAddr, s.healthAddr = rtmpAddr, httpAddr, healthAddr
	}
}

// New creates a new server instance with the given configuration.
// The server is not started until Start is called.
func New(cfg *config.Config, logger *zap.Logger, version string, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sink, err := egress.New(cfg.Segmenter, logger)
	if err != nil {
		return nil, fmt.Errorf("egress: %w", err)
	}
	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	registry := bus.NewRegistry(cfg.Ingest.MaxStreams)
	relays, err := relay.NewManager(registry, cfg.Relays, logger)
	if err != nil {
		_ = notifier.Close()
		return nil, fmt.Errorf("relay: %w", err)
	}
	collector := metrics.NewCollector()

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		metrics:    collector,
		sink:       sink,
		notifier:   notifier,
		relays:     relays,
		rtmpAddr:   fmt.Sprintf(":%d", cfg.Server.RTMPPort),
		httpAddr:   fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		healthAddr: fmt.Sprintf(":%d", cfg.Server.HealthPort),
		errs:       make(chan error, 3),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rtmp = rtmp.NewServer(rtmp.Options{
		Registry:     registry,
		Sink:         sink,
		Ingest:       cfg.Ingest,
		CloseTimeout: cfg.Segmenter.CloseTimeout,
		Metrics:      collector,
		Logger:       logger.Named("rtmp"),
	})
	s.httpServer = &http.Server{Handler: s.apiRouter(version)}
	s.healthServer = &http.Server{Handler: s.healthRouter()}
	return s, nil
}

// Registry returns the stream registry.
func (s *Server) Registry() *bus.Registry {
	return s.registry
}

// Start binds every listener and serves in the background.
// Listener errors after Start are reported by Err.
func (s *Server) Start(ctx context.Context) error {
	var err error
	if s.healthLn, err = net.Listen("tcp", s.healthAddr); err != nil {
		return fmt.Errorf("health listener: %w", err)
	}
	if s.httpLn, err = net.Listen("tcp", s.httpAddr); err != nil {
		_ = s.healthLn.Close()
		return fmt.Errorf("http listener: %w", err)
	}
	if err := s.rtmp.Listen(s.rtmpAddr); err != nil {
		_ = s.healthLn.Close()
		_ = s.httpLn.Close()
		return fmt.Errorf("rtmp listener: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	id, events := s.registry.Watch(256)
	s.watchID = id
	s.goServe("notify", func() error {
		notify.Forward(ctx, events, s.notifier)
		return nil
	})
	s.goServe("health", func() error { return s.healthServer.Serve(s.healthLn) })
	s.goServe("http", func() error { return s.httpServer.Serve(s.httpLn) })
	s.goServe("rtmp", s.rtmp.Serve)
	s.relays.Start(ctx)
	s.ready.Store(true)

	s.logger.Info("streamx started",
		zap.String("rtmp", s.RTMPAddr()),
		zap.String("http", s.HTTPAddr()),
		zap.String("health", s.healthLn.Addr().String()),
		zap.String("segmenter", s.sink.Name()),
		zap.Int("relays", s.relays.TaskCount()))
	return nil
}

// goServe runs fn and reports unexpected errors.
func (s *Server) goServe(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("listener failed", zap.String("listener", name), zap.Error(err))
			select {
			case s.errs <- fmt.Errorf("%s: %w", name, err):
			default:
			}
		}
	}()
}

// Err receives the first listener failure.
func (s *Server) Err() <-chan error {
	return s.errs
}

// RTMPAddr returns the bound RTMP address.
func (s *Server) RTMPAddr() string {
	if addr := s.rtmp.Addr(); addr != nil {
		return addr.String()
	}
	return s.rtmpAddr
}

// HTTPAddr returns the bound API address.
func (s *Server) HTTPAddr() string {
	if s.httpLn != nil {
		return s.httpLn.Addr().String()
	}
	return s.httpAddr
}

// HealthAddr returns the bound health address.
func (s *Server) HealthAddr() string {
	if s.healthLn != nil {
		return s.healthLn.Addr().String()
	}
	return s.healthAddr
}

// Shutdown gracefully stops the server. Ingest stops first so streams end
// and notifications are flushed before the HTTP side goes away.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.relays.Stop()

	var errs []error
	if err := s.rtmp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("rtmp: %w", err))
	}
	s.registry.Unwatch(s.watchID)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := s.healthServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health: %w", err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if err := s.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}
	s.logger.Info("streamx stopped")
	return errors.Join(errs...)
}

// If you are AI: This file provides the HTTP API service and its routes.
// The API reads registry snapshots and counters; it never touches media paths.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"streamx/internal/core/bus"
	"streamx/internal/metrics"
	"streamx/internal/svc/relay"
	"streamx/internal/svc/rtmp"
)

// SessionLister exposes live RTMP connections.
type SessionLister interface {
	Sessions() []rtmp.SessionInfo
}

// RelayLister exposes push relay state.
type RelayLister interface {
	Tasks() []relay.TaskInfo
}

// Service provides HTTP API functionality.
type Service struct {
	registry  *bus.Registry
	sessions  SessionLister
	relays    RelayLister
	metrics   *metrics.Collector
	logger    *zap.Logger
	version   string
	services  []string
	startTime time.Time
	upgrader  websocket.Upgrader
}

// Options configures a Service.
type Options struct {
	Registry *bus.Registry
	Sessions SessionLister // optional
	Relays   RelayLister   // optional
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Version  string
	Services []string // enabled service names reported by /api/server
}

// NewService creates a new API service.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		registry:  opts.Registry,
		sessions:  opts.Sessions,
		relays:    opts.Relays,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		version:   opts.Version,
		services:  opts.Services,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers API routes under /api.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api")
	g.GET("/server", s.handleServer)
	g.GET("/sessions", s.handleSessions)
	g.GET("/relays", s.handleRelays)
	g.GET("/streams", s.handleStreams)
	g.GET("/streams/watch", s.handleWatch)
	g.GET("/streams/:app/:name", s.handleStream)
}

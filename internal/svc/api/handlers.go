// If you are AI: This file implements HTTP API handlers.
// All handlers are fast, allocation-light, and never block media paths.

package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"streamx/internal/core/bus"
	"streamx/internal/metrics"
	"streamx/internal/svc/relay"
	"streamx/internal/svc/rtmp"
)

// ServerResponse represents the /api/server response.
type ServerResponse struct {
	Version         string           `json:"version"`
	Uptime          int64            `json:"uptime"` // seconds
	GoVersion       string           `json:"go_version"`
	EnabledServices []string         `json:"enabled_services"`
	Streams         int              `json:"streams"`
	MaxStreams      int              `json:"max_streams"` // 0 = unlimited
	Counters        metrics.Snapshot `json:"counters"`
}

// StreamsResponse represents the /api/streams response.
type StreamsResponse struct {
	Streams []bus.StreamInfo `json:"streams"`
}

// SessionsResponse represents the /api/sessions response.
type SessionsResponse struct {
	Sessions []rtmp.SessionInfo `json:"sessions"`
}

// RelaysResponse represents the /api/relays response.
type RelaysResponse struct {
	Tasks []relay.TaskInfo `json:"tasks"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServer handles GET /api/server.
func (s *Service) handleServer(c *gin.Context) {
	c.JSON(http.StatusOK, ServerResponse{
		Version:         s.version,
		Uptime:          int64(time.Since(s.startTime).Seconds()),
		GoVersion:       runtime.Version(),
		EnabledServices: s.services,
		Streams:         s.registry.Count(),
		MaxStreams:      s.registry.Capacity(),
		Counters:        s.metrics.Snapshot(),
	})
}

// handleStreams handles GET /api/streams with a snapshot sorted by key.
func (s *Service) handleStreams(c *gin.Context) {
	c.JSON(http.StatusOK, StreamsResponse{Streams: s.registry.List()})
}

// handleStream handles GET /api/streams/:app/:name.
func (s *Service) handleStream(c *gin.Context) {
	key := bus.NewStreamKey(c.Param("app"), c.Param("name"))
	stream := s.registry.Lookup(key)
	if stream == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "stream " + key.String() + " not found"})
		return
	}
	c.JSON(http.StatusOK, stream.Info())
}

// handleSessions handles GET /api/sessions.
func (s *Service) handleSessions(c *gin.Context) {
	resp := SessionsResponse{Sessions: []rtmp.SessionInfo{}}
	if s.sessions != nil {
		resp.Sessions = s.sessions.Sessions()
	}
	c.JSON(http.StatusOK, resp)
}

// handleRelays handles GET /api/relays.
func (s *Service) handleRelays(c *gin.Context) {
	resp := RelaysResponse{Tasks: []relay.TaskInfo{}}
	if s.relays != nil {
		resp.Tasks = s.relays.Tasks()
	}
	c.JSON(http.StatusOK, resp)
}

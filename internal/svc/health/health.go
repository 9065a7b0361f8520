// If you are AI: This file implements the health check endpoint for monitoring and integration tests.

package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Service provides health check functionality.
type Service struct {
	ready func() bool
}

// New creates a new health service. ready reports whether ingest is accepting
// connections; nil means always ready.
func New(ready func() bool) *Service {
	return &Service{ready: ready}
}

// RegisterRoutes adds /healthz (liveness) and /readyz (readiness).
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
}

// handleHealth returns 200 while the process runs.
func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReady returns 503 until the RTMP listener is up.
func (s *Service) handleReady(c *gin.Context) {
	if s.ready != nil && !s.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// If you are AI: This file implements the HTTP-FLV live playback handler.
// Handles GET /live/{app}/{name}.flv and streams FLV until the publisher or the client leaves.

package httpflv

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/flv"
)

// Handler serves live streams as chunked FLV.
type Handler struct {
	registry *bus.Registry
	buffer   uint32
	logger   *zap.Logger
}

// NewHandler creates a new HTTP-FLV handler; buffer is the per-client ring size.
func NewHandler(registry *bus.Registry, buffer uint32, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, buffer: buffer, logger: logger}
}

// RegisterRoutes registers the HTTP-FLV route.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/live/:app/:file", h.serve)
}

// serve attaches to the stream and relays it until the stream ends or the request is cancelled.
func (h *Handler) serve(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("file"), ".flv")
	key := bus.NewStreamKey(c.Param("app"), name)
	if !ok || !key.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected /live/{app}/{name}.flv"})
		return
	}
	stream := h.registry.Lookup(key)
	if stream == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
		return
	}
	sub, err := stream.AttachSubscriber(h.buffer)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
		return
	}
	defer stream.DetachSubscriber(sub.ID())

	c.Header("Content-Type", "video/x-flv")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	log := h.logger.With(zap.String("stream", key.String()), zap.String("client", c.ClientIP()))
	log.Debug("http-flv client attached")
	err = flv.Relay(c.Request.Context(), sub, flv.NewWriter(c.Writer), func() error {
		c.Writer.Flush()
		return nil
	})
	log.Debug("http-flv client detached", zap.Error(err), zap.Uint64("dropped", sub.Dropped()))
}

// If you are AI: This file implements the WebSocket-FLV live playback handler.
// Handles GET /ws/{app}/{name}; every FLV tag is sent as one binary frame.

package wsflv

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/flv"
)

const writeTimeout = 10 * time.Second

// Handler serves live streams as FLV over WebSocket.
type Handler struct {
	registry *bus.Registry
	buffer   uint32
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket-FLV handler.
func NewHandler(registry *bus.Registry, buffer uint32, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		buffer:   buffer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// Players are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the WebSocket-FLV route.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/:app/:name", h.serve)
}

// serve upgrades the request and relays the stream until either side goes away.
func (h *Handler) serve(c *gin.Context) {
	key := bus.NewStreamKey(c.Param("app"), c.Param("name"))
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

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go discardIncoming(conn, cancel)

	var frame bytes.Buffer
	err = flv.Relay(ctx, sub, flv.NewWriter(&frame), func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := conn.WriteMessage(websocket.BinaryMessage, frame.Bytes())
		frame.Reset()
		return err
	})
	if err == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"),
			time.Now().Add(time.Second))
	}
	h.logger.Debug("ws-flv client detached", zap.String("stream", key.String()), zap.Error(err))
}

// discardIncoming reads until the client closes, then cancels the relay.
func discardIncoming(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

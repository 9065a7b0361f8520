// If you are AI: This file implements the WebSocket feed of registry changes.
// A client first receives the current snapshot, then one JSON event per change.

package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"streamx/internal/core/bus"
)

const (
	watchBuffer  = 64
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// WatchMessage is one frame of the watch feed.
type WatchMessage struct {
	Type    string           `json:"type"` // "snapshot" or a bus.EventType
	Streams []bus.StreamInfo `json:"streams,omitempty"`
	Stream  *bus.StreamInfo  `json:"stream,omitempty"`
	Time    time.Time        `json:"time"`
}

// handleWatch handles GET /api/streams/watch.
func (s *Service) handleWatch(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Subscribe before the snapshot so no change falls between them.
	id, events := s.registry.Watch(watchBuffer)
	defer s.registry.Unwatch(id)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeJSON(conn, WatchMessage{Type: "snapshot", Streams: s.registry.List(), Time: time.Now()}); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			info := ev.Stream
			if err := writeJSON(conn, WatchMessage{Type: string(ev.Type), Stream: &info, Time: ev.Time}); err != nil {
				s.logger.Debug("watch client gone", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// writeJSON writes v as one text frame.
func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

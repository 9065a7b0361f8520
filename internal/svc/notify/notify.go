// If you are AI: This file defines stream lifecycle notifications and the registry bridge.
// Notifications are best effort; a slow or absent backend never blocks ingest.

package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
)

// Event is the JSON document published for each lifecycle change.
type Event struct {
	Event      string    `json:"event"`
	Stream     string    `json:"stream"`
	SessionID  string    `json:"session_id"`
	RemoteAddr string    `json:"remote_addr"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier delivers lifecycle events.
type Notifier interface {
	Notify(ev Event)
	Close() error
}

// Nop drops every event.
type Nop struct{}

// Notify drops ev.
func (Nop) Notify(Event) {}

// Close is a no-op.
func (Nop) Close() error { return nil }

// New returns a Redis notifier when a URL is configured, Nop otherwise.
func New(cfg config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	if cfg.RedisURL == "" {
		return Nop{}, nil
	}
	return NewRedis(RedisConfig{URL: cfg.RedisURL, Channel: cfg.Channel}, logger)
}

// FromRegistryEvent converts a registry change into a notification.
func FromRegistryEvent(ev bus.Event) Event {
	name := "started"
	if ev.Type == bus.EventStreamEnded {
		name = "ended"
	}
	return Event{
		Event:      name,
		Stream:     ev.Stream.Key,
		SessionID:  ev.Stream.SessionID,
		RemoteAddr: ev.Stream.RemoteAddr,
		Timestamp:  ev.Time,
	}
}

// Forward relays registry events from a Registry.Watch channel to n until ctx is done or the channel closes.
func Forward(ctx context.Context, events <-chan bus.Event, n Notifier) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.Notify(FromRegistryEvent(ev))
		}
	}
}

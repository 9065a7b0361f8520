// If you are AI: This file implements the process-wide counter collector.

// Package metrics provides in-process counters for the ingest server.
//
// The Collector is a leaf package with no internal dependencies. All increment
// methods are nil-receiver safe so tests and tools can pass a nil collector.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Connections
	ConnectionsAccepted int64 `json:"connections_accepted"`
	ConnectionsActive   int64 `json:"connections_active"`
	HandshakeFailures   int64 `json:"handshake_failures"`
	ProtocolErrors      int64 `json:"protocol_errors"`

	// Streams
	PublishesStarted  int64 `json:"publishes_started"`
	PublishesRejected int64 `json:"publishes_rejected"`
	PlaysStarted      int64 `json:"plays_started"`

	// Media
	MessagesIn  int64 `json:"messages_in"`
	BytesIn     int64 `json:"bytes_in"`
	EgressDrops int64 `json:"egress_drops"`

	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Collector accumulates counters for the process lifetime.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu      sync.Mutex
	started time.Time

	connectionsAccepted int64
	connectionsActive   int64
	handshakeFailures   int64
	protocolErrors      int64

	publishesStarted  int64
	publishesRejected int64
	playsStarted      int64

	messagesIn  int64
	bytesIn     int64
	egressDrops int64
}

// NewCollector creates a Collector; uptime is measured from now.
func NewCollector() *Collector {
	return &Collector{started: time.Now()}
}

// add increments a counter under the lock.
func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Connections ---

// ConnectionOpened records an accepted connection.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectionsAccepted++
	c.connectionsActive++
	c.mu.Unlock()
}

// ConnectionClosed records a connection teardown.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.add(&c.connectionsActive, -1)
}

// IncHandshakeFailure records a failed handshake.
func (c *Collector) IncHandshakeFailure() {
	if c == nil {
		return
	}
	c.add(&c.handshakeFailures, 1)
}

// IncProtocolError records a connection closed for a protocol violation.
func (c *Collector) IncProtocolError() {
	if c == nil {
		return
	}
	c.add(&c.protocolErrors, 1)
}

// --- Streams ---

// IncPublishStarted records a successful publish.
func (c *Collector) IncPublishStarted() {
	if c == nil {
		return
	}
	c.add(&c.publishesStarted, 1)
}

// IncPublishRejected records a refused publish (key in use or capacity).
func (c *Collector) IncPublishRejected() {
	if c == nil {
		return
	}
	c.add(&c.publishesRejected, 1)
}

// IncPlayStarted records a player attaching to a stream.
func (c *Collector) IncPlayStarted() {
	if c == nil {
		return
	}
	c.add(&c.playsStarted, 1)
}

// --- Media ---

// AddMessage records one forwarded media or data message.
func (c *Collector) AddMessage(bytes int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesIn++
	c.bytesIn += int64(bytes)
	c.mu.Unlock()
}

// IncEgressDrop records a stream closed because its sink fell behind.
func (c *Collector) IncEgressDrop() {
	if c == nil {
		return
	}
	c.add(&c.egressDrops, 1)
}

// Snapshot returns the current counter values.
// A nil collector yields a zero snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ConnectionsAccepted: c.connectionsAccepted,
		ConnectionsActive:   c.connectionsActive,
		HandshakeFailures:   c.handshakeFailures,
		ProtocolErrors:      c.protocolErrors,
		PublishesStarted:    c.publishesStarted,
		PublishesRejected:   c.publishesRejected,
		PlaysStarted:        c.playsStarted,
		MessagesIn:          c.messagesIn,
		BytesIn:             c.bytesIn,
		EgressDrops:         c.egressDrops,
		UptimeSeconds:       time.Since(c.started).Seconds(),
	}
}

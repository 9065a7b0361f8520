// If you are AI: This file implements the Registry for managing stream lifecycle.
// The registry maps StreamKey to the one Stream currently publishing under it.

package bus

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// EventType names a registry change.
type EventType string

const (
	EventStreamStarted EventType = "stream_started"
	EventStreamEnded   EventType = "stream_ended"
)

// Event reports a registry change to watchers.
type Event struct {
	Type   EventType  `json:"type"`
	Stream StreamInfo `json:"stream"`
	Time   time.Time  `json:"time"`
}

// Registry manages the lifecycle of streams.
// Lock expectations: uniqueness and capacity are decided under one mutex; no I/O under it.
type Registry struct {
	mu         sync.RWMutex
	streams    map[StreamKey]*Stream
	maxStreams int

	watchMu   sync.Mutex
	watchers  map[uint64]chan Event
	nextWatch uint64
}

// NewRegistry creates a new stream registry; maxStreams <= 0 means unlimited.
func NewRegistry(maxStreams int) *Registry {
	return &Registry{
		streams:    make(map[StreamKey]*Stream),
		maxStreams: maxStreams,
		watchers:   make(map[uint64]chan Event),
	}
}

// Register claims key for owner.
// Fails with ErrKeyInUse when the key is live and ErrCapacityExceeded at the limit.
func (r *Registry) Register(key StreamKey, owner Owner) (*Stream, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key.String())
	}

	r.mu.Lock()
	if _, exists := r.streams[key]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrKeyInUse, key)
	}
	if r.maxStreams > 0 && len(r.streams) >= r.maxStreams {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: limit %d", ErrCapacityExceeded, r.maxStreams)
	}
	stream := NewStream(key, owner)
	r.streams[key] = stream
	r.mu.Unlock()

	r.broadcast(Event{Type: EventStreamStarted, Stream: stream.Info(), Time: time.Now()})
	return stream, nil
}

// Unregister removes key if it is still held by sessionID and closes the stream.
// Returns false when the key is absent or owned by another session.
func (r *Registry) Unregister(key StreamKey, sessionID string) bool {
	r.mu.Lock()
	stream, exists := r.streams[key]
	if !exists || stream.owner.SessionID != sessionID {
		r.mu.Unlock()
		return false
	}
	delete(r.streams, key)
	r.mu.Unlock()

	info := stream.Info()
	stream.Close()
	r.broadcast(Event{Type: EventStreamEnded, Stream: info, Time: time.Now()})
	return true
}

// Lookup retrieves a stream by key, returning nil if not found.
func (r *Registry) Lookup(key StreamKey) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[key]
}

// Count returns the number of active streams in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// Capacity returns the configured stream limit (0 for unlimited).
func (r *Registry) Capacity() int {
	if r.maxStreams < 0 {
		return 0
	}
	return r.maxStreams
}

// List returns a snapshot of every stream sorted by key.
func (r *Registry) List() []StreamInfo {
	r.mu.RLock()
	streams := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.RUnlock()

	infos := make([]StreamInfo, 0, len(streams))
	for _, s := range streams {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// Watch subscribes to registry events.
// Delivery never blocks; a watcher whose buffer is full misses events.
func (r *Registry) Watch(buffer int) (uint64, <-chan Event) {
	if buffer <= 0 {
		buffer = 16
	}
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	r.nextWatch++
	ch := make(chan Event, buffer)
	r.watchers[r.nextWatch] = ch
	return r.nextWatch, ch
}

// Unwatch removes a watcher and closes its channel.
func (r *Registry) Unwatch(id uint64) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if ch, ok := r.watchers[id]; ok {
		delete(r.watchers, id)
		close(ch)
	}
}

// broadcast delivers ev to every watcher without blocking.
func (r *Registry) broadcast(ev Event) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	for _, ch := range r.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

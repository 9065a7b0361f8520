// If you are AI: This file implements the Stream type owned by one publishing session.
// A stream fans media out to any number of subscribers and caches decoder headers for late joiners.

package bus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Owner identifies the session holding a stream key.
type Owner struct {
	SessionID  string
	RemoteAddr string
}

// Stream represents a live media stream instance.
// Lock expectations: mu guards subscribers and the header cache; counters are atomic.
type Stream struct {
	key       StreamKey
	owner     Owner
	startedAt time.Time

	mu          sync.RWMutex
	subscribers map[uint64]*Subscriber
	nextSubID   uint64
	closed      bool
	metadata    *Message
	audioHeader *Message
	videoHeader *Message
	metaProps   map[string]any

	messages atomic.Uint64
	bytes    atomic.Uint64
}

// NewStream creates a new stream with the given key and owner.
func NewStream(key StreamKey, owner Owner) *Stream {
	return &Stream{
		key:         key,
		owner:       owner,
		startedAt:   time.Now(),
		subscribers: make(map[uint64]*Subscriber),
		nextSubID:   1,
	}
}

// Key returns the stream's key.
func (s *Stream) Key() StreamKey {
	return s.key
}

// Owner returns the publishing session.
func (s *Stream) Owner() Owner {
	return s.owner
}

// SetMetadata records decoded stream metadata for the query surface.
func (s *Stream) SetMetadata(props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metaProps = props
}

// AttachSubscriber attaches a new subscriber to the stream.
// Cached metadata and sequence headers are queued first.
func (s *Stream) AttachSubscriber(capacity uint32) (*Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}

	id := s.nextSubID
	s.nextSubID++
	sub := NewSubscriber(id, capacity, BackpressureDropOldest)
	for _, m := range []*Message{s.metadata, s.videoHeader, s.audioHeader} {
		if m != nil {
			sub.buffer.Write(m)
		}
	}
	s.subscribers[id] = sub
	return sub, nil
}

// DetachSubscriber detaches a subscriber from the stream.
func (s *Stream) DetachSubscriber(id uint64) {
	s.mu.Lock()
	sub, ok := s.subscribers[id]
	delete(s.subscribers, id)
	s.mu.Unlock()
	if ok {
		sub.end()
	}
}

// Publish delivers a message to all subscribers.
// Lock expectations: Read lock held during fanout; ring buffer writes never block.
func (s *Stream) Publish(msg *Message) {
	if msg == nil {
		return
	}
	s.messages.Add(1)
	s.bytes.Add(uint64(len(msg.Payload)))

	if msg.Type == MessageTypeData || msg.IsSequenceHeader() {
		s.mu.Lock()
		switch {
		case msg.Type == MessageTypeData:
			s.metadata = msg
		case msg.Type == MessageTypeAudio:
			s.audioHeader = msg
		default:
			s.videoHeader = msg
		}
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, sub := range s.subscribers {
		sub.buffer.Write(msg)
	}
}

// Close ends the stream; subscribers drain their buffers then see ErrStreamEnded.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subscribers
	s.subscribers = make(map[uint64]*Subscriber)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.end()
	}
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// SubscriberCount returns the number of active subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// StreamInfo is a point-in-time snapshot of a registered stream.
type StreamInfo struct {
	Key         string         `json:"key"`
	App         string         `json:"app"`
	Name        string         `json:"name"`
	SessionID   string         `json:"session_id"`
	RemoteAddr  string         `json:"remote_addr"`
	StartedAt   time.Time      `json:"started_at"`
	Subscribers int            `json:"subscribers"`
	Messages    uint64         `json:"messages"`
	Bytes       uint64         `json:"bytes"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Info returns a snapshot of the stream.
func (s *Stream) Info() StreamInfo {
	s.mu.RLock()
	subs := len(s.subscribers)
	meta := s.metaProps
	s.mu.RUnlock()
	return StreamInfo{
		Key:         s.key.String(),
		App:         s.key.App,
		Name:        s.key.Name,
		SessionID:   s.owner.SessionID,
		RemoteAddr:  s.owner.RemoteAddr,
		StartedAt:   s.startedAt,
		Subscribers: subs,
		Messages:    s.messages.Load(),
		Bytes:       s.bytes.Load(),
		Metadata:    meta,
	}
}

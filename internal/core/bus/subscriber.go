// If you are AI: This file defines the Subscriber that consumes messages from a stream.
// Subscribers receive messages via their own ring buffer so a slow consumer never blocks the publisher.

package bus

import (
	"context"
	"sync"
)

// Subscriber represents a consumer of media messages from a stream.
type Subscriber struct {
	id     uint64
	buffer *RingBuffer
	done   chan struct{}
	once   sync.Once
}

// NewSubscriber creates a new subscriber with the specified buffer capacity and strategy.
func NewSubscriber(id uint64, capacity uint32, strategy BackpressureStrategy) *Subscriber {
	return &Subscriber{
		id:     id,
		buffer: NewRingBuffer(capacity, strategy),
		done:   make(chan struct{}),
	}
}

// ID returns the unique subscriber identifier.
func (s *Subscriber) ID() uint64 {
	return s.id
}

// Buffer returns the subscriber's ring buffer.
func (s *Subscriber) Buffer() *RingBuffer {
	return s.buffer
}

// end marks the stream as finished for this subscriber.
func (s *Subscriber) end() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed when the stream ends or the subscriber is detached.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Next blocks until a message is available.
// Buffered messages are drained before ErrStreamEnded is returned.
func (s *Subscriber) Next(ctx context.Context) (*Message, error) {
	for {
		if msg, ok := s.buffer.Read(); ok {
			return msg, nil
		}
		select {
		case <-s.buffer.Notify():
		case <-s.done:
			if msg, ok := s.buffer.Read(); ok {
				return msg, nil
			}
			return nil, ErrStreamEnded
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Dropped returns the number of messages dropped due to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.buffer.Dropped()
}

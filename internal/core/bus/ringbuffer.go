// If you are AI: This file implements the bounded ring buffer for subscriber message delivery.
// Writers never block; overflow is resolved by the backpressure strategy.

package bus

import (
	"sync"
)

// BackpressureStrategy defines how the ring buffer handles overflow.
type BackpressureStrategy uint8

const (
	// BackpressureDropOldest drops the oldest message when buffer is full.
	BackpressureDropOldest BackpressureStrategy = iota
	// BackpressureDropNewest drops the newest message when buffer is full.
	BackpressureDropNewest
)

// RingBuffer is a bounded circular buffer for Message delivery.
// Lock expectations: one mutex guards positions; Notify wakes a blocked reader.
// Allocation: Pre-allocated buffer, no per-message allocations.
type RingBuffer struct {
	mu       sync.Mutex
	buffer   []*Message
	head     int // index of the oldest message
	count    int
	strategy BackpressureStrategy
	dropped  uint64
	notify   chan struct{}
}

// NewRingBuffer creates a new ring buffer with the specified capacity (minimum 1).
func NewRingBuffer(capacity uint32, strategy BackpressureStrategy) *RingBuffer {
	if capacity == 0 {
		capacity = 1
	}
	return &RingBuffer{
		buffer:   make([]*Message, capacity),
		strategy: strategy,
		notify:   make(chan struct{}, 1),
	}
}

// Write attempts to write a message to the buffer.
// Returns false only when the buffer was full and the strategy dropped msg itself.
func (rb *RingBuffer) Write(msg *Message) bool {
	if msg == nil {
		return false
	}

	rb.mu.Lock()
	size := len(rb.buffer)
	if rb.count == size {
		rb.dropped++
		if rb.strategy == BackpressureDropNewest {
			rb.mu.Unlock()
			return false
		}
		// Drop oldest
		rb.buffer[rb.head] = nil
		rb.head = (rb.head + 1) % size
		rb.count--
	}
	rb.buffer[(rb.head+rb.count)%size] = msg
	rb.count++
	rb.mu.Unlock()

	select {
	case rb.notify <- struct{}{}:
	default:
	}
	return true
}

// Read attempts to read a message from the buffer.
// Returns the message and true if available, nil and false if empty.
func (rb *RingBuffer) Read() (*Message, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.count == 0 {
		return nil, false
	}
	msg := rb.buffer[rb.head]
	rb.buffer[rb.head] = nil
	rb.head = (rb.head + 1) % len(rb.buffer)
	rb.count--
	return msg, true
}

// Notify returns a channel signalled after writes.
func (rb *RingBuffer) Notify() <-chan struct{} {
	return rb.notify
}

// Dropped returns the number of messages dropped due to backpressure.
func (rb *RingBuffer) Dropped() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Len returns the number of buffered messages.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Available returns the number of free slots in the buffer.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.buffer) - rb.count
}

// If you are AI: This file implements the per-publisher bounded queue in front of a sink Track.
// Enqueue never blocks the session; a full queue is reported as ErrSinkBackpressure.

package egress

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Forwarder drains queued records into a Track on its own goroutine.
type Forwarder struct {
	track  Track
	queue  chan Record
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	err    error

	failed chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewForwarder starts a forwarder with room for depth pending records.
func NewForwarder(track Track, depth int, logger *zap.Logger) *Forwarder {
	if depth <= 0 {
		depth = 1
	}
	f := &Forwarder{
		track:  track,
		queue:  make(chan Record, depth),
		logger: logger,
		failed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

// run writes records until the queue is closed.
// After a sink failure the remaining records are discarded.
func (f *Forwarder) run() {
	defer close(f.done)
	for rec := range f.queue {
		if f.Err() != nil {
			continue
		}
		if err := f.track.Write(rec); err != nil {
			f.fail(fmt.Errorf("sink write: %w", err))
		}
	}
}

// fail records the first sink error.
func (f *Forwarder) fail(err error) {
	f.mu.Lock()
	first := f.err == nil
	if first {
		f.err = err
	}
	f.mu.Unlock()
	if first {
		f.logger.Warn("segmenter sink failed", zap.Error(err))
		f.once.Do(func() { close(f.failed) })
	}
}

// Err returns the sink error, if any.
func (f *Forwarder) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Failed is closed when the sink reports an error.
func (f *Forwarder) Failed() <-chan struct{} {
	return f.failed
}

// Enqueue hands rec to the forwarder without blocking.
func (f *Forwarder) Enqueue(rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrForwarderClosed
	}
	if f.err != nil {
		return f.err
	}
	select {
	case f.queue <- rec:
		return nil
	default:
		return fmt.Errorf("%w: %d records pending", ErrSinkBackpressure, len(f.queue))
	}
}

// Pending returns the number of queued records.
func (f *Forwarder) Pending() int {
	return len(f.queue)
}

// Close stops accepting records, waits up to timeout for the queue to drain, then closes the track.
// Safe to call more than once; later calls return nil.
func (f *Forwarder) Close(timeout time.Duration) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	var drainErr error
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
	case <-timer.C:
		drainErr = fmt.Errorf("%w after %s with %d pending", ErrDrainTimeout, timeout, len(f.queue))
	}

	if err := f.track.Close(); err != nil && drainErr == nil {
		drainErr = fmt.Errorf("close track: %w", err)
	}
	return drainErr
}

// If you are AI: This file implements push relay functionality.
// Push relay subscribes to a local stream and republishes it to a remote RTMP server.

package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	pollInterval = 250 * time.Millisecond
	pushBuffer   = 1024
)

// Task states reported by TaskInfo.
const (
	StateWaiting = "waiting" // local stream not live
	StatePushing = "pushing"
	StateBackoff = "backoff" // last attempt failed
	StateStopped = "stopped"
)

// TaskInfo describes a relay task for the API.
type TaskInfo struct {
	App       string `json:"app"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
	Messages  uint64 `json:"messages"`
	Attempts  uint64 `json:"attempts"`
}

// PushTask pushes one local stream to a remote server each time it goes live.
type PushTask struct {
	cfg      config.RelayConfig
	key      bus.StreamKey
	target   Target
	registry *bus.Registry
	logger   *zap.Logger

	messages atomic.Uint64
	attempts atomic.Uint64

	mu      sync.Mutex
	state   string
	lastErr string
}

// NewPushTask creates a push task; the URL must parse with ParseURL.
func NewPushTask(registry *bus.Registry, cfg config.RelayConfig, logger *zap.Logger) (*PushTask, error) {
	target, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	key := bus.NewStreamKey(cfg.App, cfg.Name)
	return &PushTask{
		cfg:      cfg,
		key:      key,
		target:   target,
		registry: registry,
		logger:   logger.With(zap.String("relay", key.String()), zap.String("remote", target.Host)),
		state:    StateWaiting,
	}, nil
}

// Run pushes until ctx is cancelled.
func (t *PushTask) Run(ctx context.Context) {
	defer t.setState(StateStopped, nil)
	for {
		stream, err := t.waitForStream(ctx)
		if err != nil {
			return
		}
		t.attempts.Add(1)
		err = t.pushOnce(ctx, stream)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			t.logger.Info("local stream ended, relay idle")
			t.setState(StateWaiting, nil)
			continue
		}
		t.logger.Warn("relay push failed", zap.Error(err))
		t.setState(StateBackoff, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.cfg.RetryInterval):
		}
	}
}

// waitForStream polls the registry until the local stream is live.
func (t *PushTask) waitForStream(ctx context.Context) (*bus.Stream, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if stream := t.registry.Lookup(t.key); stream != nil && !stream.Closed() {
			return stream, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// pushOnce relays stream to the remote until it ends (nil) or something fails.
func (t *PushTask) pushOnce(ctx context.Context, stream *bus.Stream) error {
	sub, err := stream.AttachSubscriber(pushBuffer)
	if err != nil {
		return nil
	}
	defer stream.DetachSubscriber(sub.ID())

	client, err := Dial(ctx, t.target, dialTimeout)
	if err != nil {
		return err
	}
	defer client.Close()
	t.setState(StatePushing, nil)
	t.logger.Info("relay publishing", zap.String("remote_stream", t.target.App+"/"+t.target.Name))

	for {
		msg, err := sub.Next(ctx)
		if errors.Is(err, bus.ErrStreamEnded) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := client.WriteMedia(msg, writeTimeout); err != nil {
			return err
		}
		t.messages.Add(1)
	}
}

// setState records the task state and last error.
func (t *PushTask) setState(state string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	if err != nil {
		t.lastErr = err.Error()
	}
}

// Info returns a snapshot of the task.
func (t *PushTask) Info() TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskInfo{
		App:       t.cfg.App,
		Name:      t.cfg.Name,
		URL:       t.cfg.URL,
		State:     t.state,
		LastError: t.lastErr,
		Messages:  t.messages.Load(),
		Attempts:  t.attempts.Load(),
	}
}

// If you are AI: This file implements the Redis pub/sub notifier.
// Events are queued and published by one goroutine with bounded retries.

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "streamx:events"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 2 * time.Second

// RedisConfig configures the Redis notifier.
type RedisConfig struct {
	// URL format: redis://[:password@]host:port[/db]
	URL     string
	Channel string
	Timeout time.Duration
	Retries int
	Queue   int
}

// Redis publishes events as JSON via Redis PUBLISH.
type Redis struct {
	config RedisConfig
	client *goredis.Client
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewRedis creates a Redis notifier and starts its publisher goroutine.
func NewRedis(cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Queue <= 0 {
		cfg.Queue = 256
	}

	r := &Redis{
		config: cfg,
		client: goredis.NewClient(opts),
		logger: logger,
		queue:  make(chan Event, cfg.Queue),
		done:   make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Notify queues ev; it is dropped when the queue is full or the notifier is closed.
func (r *Redis) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.logger.Warn("notification dropped", zap.String("event", ev.Event), zap.String("stream", ev.Stream))
	}
}

// run publishes queued events until the queue is closed.
func (r *Redis) run() {
	defer close(r.done)
	for ev := range r.queue {
		if err := r.Publish(context.Background(), ev); err != nil {
			r.logger.Warn("notification failed", zap.String("stream", ev.Stream), zap.Error(err))
		}
	}
}

// Publish sends ev synchronously, retrying with exponential backoff.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	var lastErr error
	attempts := 1 + r.config.Retries
	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 200 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}
		publishCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		lastErr = r.client.Publish(publishCtx, r.config.Channel, body).Err()
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

// Close drains queued events and releases the client.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.client.Close()
}

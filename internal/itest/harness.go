// If you are AI: This file provides an in-process server harness for end-to-end tests.
// The harness binds loopback ports chosen by the kernel and exposes helpers to publish and poll.

// Package itest runs the assembled server end to end.
package itest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/server"
	"streamx/internal/svc/relay"
)

// Harness is a running server on loopback ports.
type Harness struct {
	Server *server.Server
	Config *config.Config
}

// Start runs a server with cfg on 127.0.0.1 ephemeral ports and waits for readiness.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	srv, err := server.New(cfg, logger, "itest",
		server.WithListenAddrs("127.0.0.1:0", "127.0.0.1:0", "127.0.0.1:0"))
	if err != nil {
		return nil, err
	}
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	h := &Harness{Server: srv, Config: cfg}
	if err := WaitForHealth(h.HealthURL("/readyz"), 5*time.Second); err != nil {
		_ = srv.Shutdown(context.Background())
		return nil, err
	}
	return h, nil
}

// URL returns an API URL for path.
func (h *Harness) URL(path string) string {
	return "http://" + h.Server.HTTPAddr() + path
}

// HealthURL returns a health listener URL for path.
func (h *Harness) HealthURL(path string) string {
	return "http://" + h.Server.HealthAddr() + path
}

// Publish opens a publishing RTMP connection to app/name.
func (h *Harness) Publish(ctx context.Context, app, name string) (*relay.Client, error) {
	target, err := relay.ParseURL(fmt.Sprintf("rtmp://%s/%s/%s", h.Server.RTMPAddr(), app, name))
	if err != nil {
		return nil, err
	}
	return relay.Dial(ctx, target, 3*time.Second)
}

// GetJSON decodes the JSON body of GET url into out and returns the status code.
func GetJSON(url string, out any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

// Stop shuts the server down.
func (h *Harness) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// WaitForHealth waits for url to answer 200.
// Returns an error if the endpoint is not available within the timeout.
func WaitForHealth(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if code, err := GetJSON(url, nil); err == nil && code == http.StatusOK {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("health endpoint %s not available after %v", url, timeout)
}

// If you are AI: This file handles graceful shutdown orchestration for the server process.

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownHandler manages graceful shutdown on SIGINT or SIGTERM.
type ShutdownHandler struct {
	server  *Server
	ctx     context.Context
	timeout time.Duration
}

// NewShutdownHandler creates a handler that listens for termination signals.
// Cancelling ctx also triggers shutdown.
func NewShutdownHandler(ctx context.Context, server *Server, timeout time.Duration) *ShutdownHandler {
	return &ShutdownHandler{server: server, ctx: ctx, timeout: timeout}
}

// Wait blocks until a termination signal, ctx cancellation or a listener failure,
// then shuts the server down within the timeout.
// This method should be called from the main goroutine.
func (h *ShutdownHandler) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var cause error
	select {
	case sig := <-sigChan:
		h.server.logger.Info("shutdown requested", zap.String("signal", sig.String()))
	case <-h.ctx.Done():
		h.server.logger.Info("shutdown requested", zap.Error(h.ctx.Err()))
	case cause = <-h.server.Err():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return cause
}

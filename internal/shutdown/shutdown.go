// Package shutdown provides graceful shutdown coordination. It handles
// SIGTERM/SIGINT, stops accepting new work, and closes registered
// components in reverse registration order.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout is the default graceful shutdown timeout.
const DefaultTimeout = 30 * time.Second

// Component is anything that can be gracefully shut down.
type Component interface {
	// Name returns the component name for logging.
	Name() string
	// Shutdown shuts the component down within the context deadline.
	Shutdown(ctx context.Context) error
}

// Coordinator manages graceful shutdown of registered components.
type Coordinator struct {
	mu         sync.Mutex
	components []Component
	timeout    time.Duration
	logger     *slog.Logger
	signalCh   chan os.Signal
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithSignalChannel injects a custom signal channel, used by tests.
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) {
		c.signalCh = ch
	}
}

// NewCoordinator creates a coordinator with the given options.
func NewCoordinator(logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		timeout:  DefaultTimeout,
		logger:   logger,
		signalCh: make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a component. Components shut down in reverse order.
func (c *Coordinator) Register(comp Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, comp)
}

// Wait blocks until SIGINT/SIGTERM arrives or ctx is cancelled, then shuts
// all components down. It returns a process exit code.
func (c *Coordinator) Wait(ctx context.Context) int {
	signal.Notify(c.signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c.signalCh)

	select {
	case sig := <-c.signalCh:
		c.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("shutdown requested", "reason", ctx.Err())
	}

	return c.Shutdown()
}

// Shutdown closes all registered components in reverse order within the
// configured timeout.
func (c *Coordinator) Shutdown() int {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.mu.Lock()
	components := make([]Component, len(c.components))
	copy(components, c.components)
	c.mu.Unlock()

	code := 0
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		c.logger.Info("shutting down component", "component", comp.Name())
		if err := comp.Shutdown(ctx); err != nil {
			c.logger.Error("component shutdown failed", "component", comp.Name(), "error", err)
			code = 1
		}
	}
	return code
}

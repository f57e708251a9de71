package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/ssekit/component"
)

// Component runs a Registry as a lifecycle-managed component. Stopping it
// closes every open stream.
type Component[T comparable] struct {
	registry *Registry[T]
	mu       sync.Mutex
	running  bool
}

var (
	_ component.Component   = (*Component[string])(nil)
	_ component.Describable = (*Component[string])(nil)
)

// NewComponent wraps registry.
func NewComponent[T comparable](registry *Registry[T]) *Component[T] {
	return &Component[T]{registry: registry}
}

// Registry returns the wrapped registry.
func (c *Component[T]) Registry() *Registry[T] { return c.registry }

// Name returns the component name.
func (c *Component[T]) Name() string { return "sse" }

// Start marks the component as running. Streams are served by the HTTP
// server, so there is nothing to launch.
func (c *Component[T]) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

// Stop closes all open streams.
func (c *Component[T]) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	return c.registry.Close()
}

// Health reports the number of connected clients. A closed registry is
// unhealthy so readiness probes stop routing new streams to it.
func (c *Component[T]) Health(_ context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	n := c.registry.Len()
	h := component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", n),
		Details: map[string]any{component.DetailClients: n},
	}
	switch {
	case !running:
		h.Status = component.StatusUnhealthy
		h.Message = "not running"
	case c.registry.isClosed():
		h.Status = component.StatusUnhealthy
		h.Message = "registry closed"
	}
	return h
}

// Describe returns the startup summary.
func (c *Component[T]) Describe() component.Description {
	cfg := c.registry.Config()
	return component.Description{
		Name:    "SSE Registry",
		Type:    "sse",
		Details: fmt.Sprintf("path=%s keepalive=%s queue=%d", cfg.Path, cfg.KeepaliveInterval, cfg.QueueSize),
	}
}

package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// DetailClients is the Details key stream components use for their
// connected client count.
const DetailClients = "clients"

// Component is a lifecycle-managed part of a process: the SSE registry,
// the HTTP server, the metrics exporter.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is a one-line summary a component reports about itself
// when the application starts.
type Description struct {
	Name    string
	Type    string // "server", "sse", "telemetry"
	Details string
	Port    int
}

// Describable is optionally implemented by components that want to be
// listed in the startup log.
type Describable interface {
	Describe() Description
}

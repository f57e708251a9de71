package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssekit/component"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// report is the body of the health and readiness probes.
type report struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Clients    int                `json:"clients"`
	Timestamp  string             `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

func newReport(serviceName, status string, components []component.Health) report {
	return report{
		Status:     status,
		Service:    serviceName,
		Clients:    connectedClients(components),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
}

func check(ctx context.Context, checker HealthChecker) []component.Health {
	if checker == nil {
		return nil
	}
	return checker(ctx)
}

// overall folds component statuses. Unhealthy wins over degraded.
func overall(components []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, h := range components {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}

// connectedClients sums the client counts reported by stream components.
func connectedClients(components []component.Health) int {
	total := 0
	for _, h := range components {
		if n, ok := h.Details[component.DetailClients].(int); ok {
			total += n
		}
	}
	return total
}

// Health reports the overall status, the number of connected stream
// clients and every component. An unhealthy component answers 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := check(c.Request.Context(), checker)
		status := overall(components)

		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, newReport(serviceName, string(status), components))
	}
}

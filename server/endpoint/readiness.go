package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssekit/component"
)

// Readiness answers "ready" while no component is unhealthy. Once the SSE
// registry closes during shutdown it answers 503 "not_ready" and lists the
// failing components, so load balancers stop routing new streams here.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := check(c.Request.Context(), checker)

		var failing []component.Health
		for _, h := range components {
			if h.Status == component.StatusUnhealthy {
				failing = append(failing, h)
			}
		}

		r := newReport(serviceName, "ready", failing)
		r.Clients = connectedClients(components)
		code := http.StatusOK
		if len(failing) > 0 {
			r.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, r)
	}
}

package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssekit/component"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/probe", h)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/probe", http.NoBody))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr, body
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: string(s), Status: s}
		}
		return out
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checker", nil, http.StatusOK, "healthy"},
		{"all healthy", checker(component.StatusHealthy, component.StatusHealthy), http.StatusOK, "healthy"},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded"},
		{"unhealthy wins", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := serve(t, Health("ssectl", tt.checker))
			if rr.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("expected status %q, got %v", tt.wantStatus, body["status"])
			}
			if body["service"] != "ssectl" {
				t.Errorf("expected service ssectl, got %v", body["service"])
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	rr, body := serve(t, Readiness("ssectl", checker(component.StatusDegraded)))
	if rr.Code != http.StatusOK || body["status"] != "ready" {
		t.Errorf("degraded should still be ready, got %d %v", rr.Code, body["status"])
	}

	rr, body = serve(t, Readiness("ssectl", checker(component.StatusUnhealthy)))
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Errorf("expected 503 not_ready, got %d %v", rr.Code, body["status"])
	}
}

func TestLiveness(t *testing.T) {
	rr, body := serve(t, Liveness("ssectl", time.Now().Add(-90*time.Second)))
	if rr.Code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("expected 200 alive, got %d %v", rr.Code, body["status"])
	}
	if up, _ := body["uptime_seconds"].(float64); up < 90 {
		t.Errorf("uptime = %v, want >= 90", body["uptime_seconds"])
	}
}

func streams(status component.HealthStatus, clients int) component.Health {
	return component.Health{
		Name:    "sse",
		Status:  status,
		Details: map[string]any{component.DetailClients: clients},
	}
}

func TestHealth_ReportsClients(t *testing.T) {
	check := func(context.Context) []component.Health {
		return []component.Health{
			streams(component.StatusHealthy, 3),
			streams(component.StatusHealthy, 2),
			{Name: "http-server", Status: component.StatusHealthy},
		}
	}
	_, body := serve(t, Health("ssectl", check))
	if body["clients"] != float64(5) {
		t.Errorf("clients = %v, want 5", body["clients"])
	}
	if comps, _ := body["components"].([]any); len(comps) != 3 {
		t.Errorf("components = %v", body["components"])
	}
}

func TestReadiness_ClosedRegistry(t *testing.T) {
	check := func(context.Context) []component.Health {
		return []component.Health{
			{Name: "http-server", Status: component.StatusHealthy},
			streams(component.StatusUnhealthy, 0),
		}
	}
	rr, body := serve(t, Readiness("ssectl", check))
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Fatalf("expected 503 not_ready, got %d %v", rr.Code, body["status"])
	}
	comps, _ := body["components"].([]any)
	if len(comps) != 1 {
		t.Fatalf("failing components = %v, want only sse", body["components"])
	}
	if name := comps[0].(map[string]any)["name"]; name != "sse" {
		t.Errorf("failing component = %v", name)
	}
}

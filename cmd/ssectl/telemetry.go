package main

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/ssekit/component"
	"github.com/kbukum/ssekit/observability"
)

// telemetry owns the trace and metric providers. They are installed as the
// otel globals on creation so instruments built afterwards export through
// them; Stop flushes and shuts both down.
type telemetry struct {
	cfg    observability.Config
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*telemetry)(nil)
	_ component.Describable = (*telemetry)(nil)
)

func newTelemetry(ctx context.Context, cfg observability.Config) (*telemetry, error) {
	tp, err := observability.InitTracer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	mp, err := observability.InitMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("meter: %w", err)
	}
	return &telemetry{cfg: cfg, tracer: tp, meter: mp}, nil
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(context.Context) error { return nil }

func (t *telemetry) Stop(ctx context.Context) error {
	return errors.Join(t.tracer.Shutdown(ctx), t.meter.Shutdown(ctx))
}

func (t *telemetry) Health(context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

func (t *telemetry) Describe() component.Description {
	return component.Description{
		Name:    "OpenTelemetry",
		Type:    "telemetry",
		Details: fmt.Sprintf("otlp=%s sample_rate=%.2f", t.cfg.Endpoint, t.cfg.SampleRate),
	}
}

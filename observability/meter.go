package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/ssekit/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// SSEMetrics records stream and reconnect instruments. It satisfies both
// sse.Metrics and client.Metrics.
type SSEMetrics struct {
	connectionsActive metric.Int64UpDownCounter
	connectionsTotal  metric.Int64Counter
	eventsDelivered   metric.Int64Counter
	deliveriesFailed  metric.Int64Counter
	reconnectsTotal   metric.Int64Counter
	reconnectDelay    metric.Float64Histogram
	retriesExhausted  metric.Int64Counter
}

// NewSSEMetrics creates the instruments on meter.
func NewSSEMetrics(meter metric.Meter) (*SSEMetrics, error) {
	connectionsActive, err := meter.Int64UpDownCounter("sse.connections.active",
		metric.WithDescription("Number of currently registered streams"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.connections.active counter: %w", err)
	}

	connectionsTotal, err := meter.Int64Counter("sse.connections.total",
		metric.WithDescription("Total number of streams registered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.connections.total counter: %w", err)
	}

	eventsDelivered, err := meter.Int64Counter("sse.events.delivered",
		metric.WithDescription("Events accepted by a stream, by event type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.events.delivered counter: %w", err)
	}

	deliveriesFailed, err := meter.Int64Counter("sse.events.failed",
		metric.WithDescription("Events a stream rejected, by event type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.events.failed counter: %w", err)
	}

	reconnectsTotal, err := meter.Int64Counter("sse.client.reconnects",
		metric.WithDescription("Reconnects scheduled by client connectors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.client.reconnects counter: %w", err)
	}

	reconnectDelay, err := meter.Float64Histogram("sse.client.reconnect.delay",
		metric.WithDescription("Wait before a scheduled reconnect"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.client.reconnect.delay histogram: %w", err)
	}

	retriesExhausted, err := meter.Int64Counter("sse.client.retries_exhausted",
		metric.WithDescription("Connectors that gave up reconnecting"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.client.retries_exhausted counter: %w", err)
	}

	return &SSEMetrics{
		connectionsActive: connectionsActive,
		connectionsTotal:  connectionsTotal,
		eventsDelivered:   eventsDelivered,
		deliveriesFailed:  deliveriesFailed,
		reconnectsTotal:   reconnectsTotal,
		reconnectDelay:    reconnectDelay,
		retriesExhausted:  retriesExhausted,
	}, nil
}

// ConnectionOpened records a newly registered stream.
func (m *SSEMetrics) ConnectionOpened() {
	ctx := context.Background()
	m.connectionsActive.Add(ctx, 1)
	m.connectionsTotal.Add(ctx, 1)
}

// ConnectionClosed records a removed stream.
func (m *SSEMetrics) ConnectionClosed() {
	m.connectionsActive.Add(context.Background(), -1)
}

// EventDelivered records one successful write.
func (m *SSEMetrics) EventDelivered(event string) {
	m.eventsDelivered.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event", event),
	))
}

// DeliveryFailed records one rejected write.
func (m *SSEMetrics) DeliveryFailed(event string) {
	m.deliveriesFailed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event", event),
	))
}

// ReconnectScheduled records a reconnect armed by a client connector.
func (m *SSEMetrics) ReconnectScheduled(attempt int, delay time.Duration) {
	ctx := context.Background()
	m.reconnectsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("attempt", attempt),
	))
	m.reconnectDelay.Record(ctx, delay.Seconds())
}

// RetriesExhausted records a connector that stopped reconnecting.
func (m *SSEMetrics) RetriesExhausted() {
	m.retriesExhausted.Add(context.Background(), 1)
}

// Package observability wires OpenTelemetry tracing and metrics.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultConfig("ssectl"))
//	defer tp.Shutdown(ctx)
//
//	ctx, op := observability.StartOperation(ctx, observability.SpanBroadcast, requestID)
//	defer op.End(err)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultConfig("ssectl"))
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewSSEMetrics(observability.Meter("ssectl"))
//	reg := sse.NewRegistry[string](sse.WithMetrics(m))
//	conn, err := client.New(url, client.WithMetrics(m))
package observability

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced unit of work, such as an emit request.
type Operation struct {
	Name      string
	RequestID string
	StartTime time.Time

	span trace.Span
}

// StartOperation starts a span named name and returns the operation
// tracking it.
func StartOperation(ctx context.Context, name, requestID string) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name)
	if requestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
	return ctx, &Operation{
		Name:      name,
		RequestID: requestID,
		StartTime: time.Now(),
		span:      span,
	}
}

// Span returns the operation's span.
func (op *Operation) Span() trace.Span { return op.span }

// End records status, duration and err on the span and ends it.
func (op *Operation) End(err error) {
	status := "ok"
	if err != nil {
		status = "error"
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		op.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, op.Duration().Milliseconds()),
	)
	op.span.End()
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}

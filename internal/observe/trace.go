package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/B-Dastan/ai-meeting-assistant"

type meetingKey struct{}

// StartSpan starts a span on the global tracer provider. The caller must end
// it, usually through [EndSpan].
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if id, ok := MeetingID(ctx); ok {
		opts = append(opts, trace.WithAttributes(attribute.Int64("meeting.id", id)))
	}
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan marks span as failed when err is non-nil and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// WithMeeting returns a context scoped to the meeting with the given ID.
// Spans started and loggers derived from it carry the ID.
func WithMeeting(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, meetingKey{}, id)
}

// MeetingID reports the meeting ID stored by [WithMeeting].
func MeetingID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(meetingKey{}).(int64)
	return id, ok
}

// TraceID returns the hex trace ID of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Logger returns the default logger enriched with the trace, span and meeting
// identifiers found in ctx.
func Logger(ctx context.Context) *slog.Logger {
	var attrs []any
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if id, ok := MeetingID(ctx); ok {
		attrs = append(attrs, slog.Int64("meeting_id", id))
	}
	if len(attrs) == 0 {
		return slog.Default()
	}
	return slog.Default().With(attrs...)
}

package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader carries the request's trace ID back to API clients so a failed
// upload can be matched to its pipeline log lines.
const TraceHeader = "X-Trace-ID"

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware traces, times and logs every API request. Incoming W3C trace
// context is continued. Spans and the latency histogram are labelled with the
// matched route pattern, so meeting IDs in paths do not become label values.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if id := TraceID(ctx); id != "" {
				w.Header().Set(TraceHeader, id)
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			route := routeLabel(r)
			elapsed := time.Since(start)
			span.SetName("HTTP " + route)
			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.status))
			m.RecordHTTPRequest(ctx, r.Method, route, rec.status, elapsed)

			level := slog.LevelDebug
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case r.Method != http.MethodGet:
				level = slog.LevelInfo
			}
			Logger(ctx).LogAttrs(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("bytes", rec.bytes),
				slog.Duration("duration", elapsed),
			)
		})
	}
}

// routeLabel returns the ServeMux pattern that matched r, or the raw path.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + r.URL.Path
}

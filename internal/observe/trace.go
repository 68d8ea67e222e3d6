package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/pictalk"

type userKey struct{}

// WithUser returns a context carrying the user a request is served for.
// [Logger] and [StartSpan] pick it up.
func WithUser(ctx context.Context, user string) context.Context {
	if user == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, user)
}

// User returns the user stored by [WithUser], or "".
func User(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// StartSpan starts a span on the global tracer provider. The span carries a
// pictalk.user attribute when ctx names a user. Callers must End the span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if u := User(ctx); u != "" {
		opts = append(opts, trace.WithAttributes(attribute.String("pictalk.user", u)))
	}
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// CorrelationID is the trace ID of the span in ctx, or "" without one. It is
// returned to HTTP clients as X-Correlation-ID.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns slog.Default() with the user and the trace and span IDs of
// ctx attached, when present.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if u := User(ctx); u != "" {
		l = l.With("user", u)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	return l
}

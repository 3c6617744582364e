// Package middleware holds HTTP middleware shared by the report API.
package middleware

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// UserIDHeader carries the authenticated user id set by the upstream gateway.
const UserIDHeader = "X-User-ID"

type loggerKey struct{}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithRequestLogger returns middleware that stores a request-scoped logger in
// the context and writes one access log line per request. The logger carries
// the trace and span ids when a span is active, and the calling user when the
// gateway supplied one.
func WithRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := withTrace(logger, r.Context())
			if user := r.Header.Get(UserIDHeader); user != "" {
				reqLogger = reqLogger.With(zap.String("user_id", user))
			}
			r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, reqLogger))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				reqLogger.Warn("request failed", fields...)
				return
			}
			reqLogger.Debug("request served", fields...)
		})
	}
}

func withTrace(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return logger.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return logger
}

// LoggerFromContext returns the request logger, or fallback enriched with
// the active trace ids when the context has none.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return withTrace(fallback, ctx)
}

// LoggerFromRequest is LoggerFromContext for r's context.
func LoggerFromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	return LoggerFromContext(r.Context(), fallback)
}

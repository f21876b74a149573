package httpmiddleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InjectLogger makes lg the request logger, tagged with the request id when
// RequestID ran first.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := zctx.Base(r.Context(), lg)
			if id := RequestIDFromContext(ctx); id != "" {
				ctx = zctx.With(ctx, zap.String("request_id", id))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type logFieldsKey struct{}

type logFields struct {
	mu     sync.Mutex
	fields []zap.Field
}

// AddLogFields attaches fields to the access log line of the current
// request. It is a no-op outside LogRequests.
func AddLogFields(ctx context.Context, fields ...zap.Field) {
	lf, ok := ctx.Value(logFieldsKey{}).(*logFields)
	if !ok {
		return
	}
	lf.mu.Lock()
	lf.fields = append(lf.fields, fields...)
	lf.mu.Unlock()
}

// LogRequests writes one access log line per request with status, size,
// duration, the matched route and the trace id. Server errors are logged at
// error level, everything else at info.
func LogRequests() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lf := &logFields{}
			ctx := context.WithValue(r.Context(), logFieldsKey{}, lf)
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			r = r.WithContext(ctx)
			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", r.Pattern),
				zap.Int("status", rw.status),
				zap.Int64("bytes", rw.written),
				zap.Duration("duration", time.Since(start)),
			}
			if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
				fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
			}
			lf.mu.Lock()
			fields = append(fields, lf.fields...)
			lf.mu.Unlock()

			lg := zctx.From(ctx)
			if rw.status >= http.StatusInternalServerError {
				lg.Error("Request", fields...)
				return
			}
			lg.Info("Request", fields...)
		})
	}
}

// responseWriter records the status and body size. Unwrap lets
// http.ResponseController reach the underlying writer.
type responseWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

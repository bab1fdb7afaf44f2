// Package httpmw wraps the API in a single observation layer: request id,
// server span, access log and panic recovery share one view of each request.
package httpmw

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type requestIDKey struct{}

// RequestID returns the id Observe assigned to the request, or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// Observe returns middleware that gives every request one server span and
// one access log line tagged with the same request id. The id comes from
// X-Request-Id, else the trace id when tracing is on, else a fresh uuid.
// A panic becomes a JSON 500 and fails the span. A nil tp means the global
// provider.
func Observe(logger *log.Logger, tp trace.TracerProvider) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer("scavenge/http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			rid := requestID(r, span.SpanContext())
			w.Header().Set("X-Request-Id", rid)
			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("scavenge.request_id", rid),
			)

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if p := recover(); p != nil {
					span.RecordError(fmt.Errorf("panic: %v", p))
					logger.Printf("[http] panic rid=%s %s %s: %v\n%s", rid, r.Method, r.URL.Path, p, debug.Stack())
					if !rec.wrote {
						writeInternalError(rec)
					} else {
						rec.status = http.StatusInternalServerError
					}
				}

				span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
				if rec.status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(rec.status))
				}
				logger.Printf("[http] %s %s %d %dB %s rid=%s",
					r.Method, r.URL.Path, rec.status, rec.bytes, time.Since(start).Round(time.Microsecond), rid)
			}()

			next.ServeHTTP(rec, r.WithContext(context.WithValue(ctx, requestIDKey{}, rid)))
		})
	}
}

func requestID(r *http.Request, sc trace.SpanContext) string {
	if rid := strings.TrimSpace(r.Header.Get("X-Request-Id")); rid != "" {
		return rid
	}
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": "internal server error"})
}

// recorder captures what the handler sent.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
	wrote  bool
}

func (w *recorder) WriteHeader(status int) {
	if !w.wrote {
		w.status = status
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *recorder) Write(p []byte) (int, error) {
	w.wrote = true
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

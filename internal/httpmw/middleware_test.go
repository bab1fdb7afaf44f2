package httpmw

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestObserve_PropagatesIncomingRequestID(t *testing.T) {
	var logs bytes.Buffer
	var seen string
	h := Observe(log.New(&logs, "", 0), noop.NewTracerProvider())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/expedition", nil)
	req.Header.Set("X-Request-Id", "abc123")
	res := serve(h, req)

	assert.Equal(t, http.StatusTeapot, res.Code)
	assert.Equal(t, "abc123", seen)
	assert.Equal(t, "abc123", res.Header().Get("X-Request-Id"))
	assert.Contains(t, logs.String(), "[http] GET /api/expedition 418 15B")
	assert.Contains(t, logs.String(), "rid=abc123")
}

func TestObserve_GeneratesUUIDWithoutTracing(t *testing.T) {
	h := Observe(log.New(&bytes.Buffer{}, "", 0), noop.NewTracerProvider())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	res := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	_, err := uuid.Parse(res.Header().Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestObserve_SpanCarriesRequestIDAndStatus(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := Observe(log.New(&bytes.Buffer{}, "", 0), tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	res := serve(h, httptest.NewRequest(http.MethodPost, "/api/expedition/return", nil))
	assert.Equal(t, http.StatusConflict, res.Code)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "POST /api/expedition/return", span.Name())
	assert.Equal(t, span.SpanContext().TraceID().String(), res.Header().Get("X-Request-Id"))
	assert.Contains(t, span.Attributes(), attribute.Int("http.response.status_code", http.StatusConflict))
	assert.Contains(t, span.Attributes(), attribute.String("scavenge.request_id", res.Header().Get("X-Request-Id")))
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestObserve_RecoversPanics(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var logs bytes.Buffer
	h := Observe(log.New(&logs, "", 0), tp)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	res := serve(h, httptest.NewRequest(http.MethodPost, "/api/items/use", nil))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, res.Body.String())
	assert.Contains(t, logs.String(), "kaboom")
	assert.Contains(t, logs.String(), "[http] POST /api/items/use 500")

	require.Len(t, spans.Ended(), 1)
	assert.Equal(t, codes.Error, spans.Ended()[0].Status().Code)
	require.NotEmpty(t, spans.Ended()[0].Events())
	assert.Equal(t, "exception", spans.Ended()[0].Events()[0].Name)
}

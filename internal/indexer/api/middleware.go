package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/emperorhan/oilube/internal/metrics"
	"github.com/emperorhan/oilube/internal/tracing"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// withRequestID tags logger with the request id carried by ctx, if any.
func withRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return logger.With("request_id", id)
	}
	return logger
}

// InstrumentMiddleware assigns a request id, continues any incoming trace,
// records route metrics and writes one access log line per request.
func InstrumentMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	access := logger.With("component", "query_api_access")
	tracer := tracing.Tracer("oilube/api")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "query_api.request", trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		ctx = context.WithValue(ctx, requestIDKey{}, id)
		reqLog := withRequestID(ctx, access)

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		req := r.WithContext(ctx)
		next.ServeHTTP(rec, req)

		// the mux sets Pattern on the request it is handed
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.APIRequestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", rec.status),
		)

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		reqLog.Log(ctx, level, "query API request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// responseRecorder remembers the first status written and counts body bytes.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.status = code
		rr.wroteHeader = true
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.wroteHeader = true
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pairamm/observability"
	telemetry "pairamm/observability/otel"
)

type ObservabilityConfig struct {
	LogRequests bool
	Metrics     bool
	Tracing     bool
}

// Observability records request metrics, opens a span per request and
// optionally logs every request.
type Observability struct {
	cfg    ObservabilityConfig
	logger *slog.Logger
	tracer trace.Tracer
}

func NewObservability(cfg ObservabilityConfig, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observability{
		cfg:    cfg,
		logger: logger,
		tracer: telemetry.Tracer(),
	}
}

func (o *Observability) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			var span trace.Span
			if o.cfg.Tracing {
				ctx, span = o.tracer.Start(ctx, "http."+route, trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", route),
				))
			}
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			duration := time.Since(start)
			if span != nil {
				span.SetAttributes(attribute.Int("http.status_code", recorder.status))
				if recorder.status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(recorder.status))
				}
				span.End()
			}
			if o.cfg.Metrics {
				observability.Gateway().Observe(route, r.Method, recorder.status, duration)
			}
			if o.cfg.LogRequests {
				o.logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", recorder.status,
					"duration_ms", float64(duration.Microseconds())/1000)
			}
		})
	}
}

// MetricsHandler exposes the process-wide Prometheus registry.
func (o *Observability) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

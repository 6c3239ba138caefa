package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pairamm"

type gatewayMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics

	ammMetricsOnce sync.Once
	ammRegistry    *AMMMetrics
)

// Gateway returns the lazily-initialised registry used to record HTTP
// gateway activity.
func Gateway() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by route, method and status class.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "throttles_total",
				Help:      "Count of gateway requests rejected by throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.latency,
			gatewayRegistry.throttles,
		)
	})
	return gatewayRegistry
}

// Observe records the outcome of a gateway request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *gatewayMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(route, method, statusClass(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *gatewayMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// AMMMetrics tracks pool operations and the state they leave behind.
type AMMMetrics struct {
	operations  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	events      *prometheus.CounterVec
	reserves    *prometheus.GaugeVec
	twap        *prometheus.GaugeVec
	dailyVolume *prometheus.GaugeVec
	paused      *prometheus.GaugeVec
	tick        prometheus.Gauge
}

// PoolSnapshot is the subset of pool state exported as gauges.
type PoolSnapshot struct {
	PoolID        string
	ReserveA      uint64
	ReserveB      uint64
	TWAPA         uint64
	TWAPB         uint64
	DailyVolume   uint64
	TradingPaused bool
}

// AMM returns the lazily-initialised pool metrics registry.
func AMM() *AMMMetrics {
	ammMetricsOnce.Do(func() {
		ammRegistry = &AMMMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "operations_total",
				Help:      "Pool operations segmented by pool, operation and outcome.",
			}, []string{"pool", "operation", "outcome"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "rejections_total",
				Help:      "Rejected pool operations segmented by guard or error kind.",
			}, []string{"pool", "operation", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution of pool operations including commit.",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			}, []string{"operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "events_total",
				Help:      "Committed pool events segmented by type.",
			}, []string{"type"}),
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "reserve",
				Help:      "Pool reserves by side.",
			}, []string{"pool", "side"}),
			twap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "twap",
				Help:      "Last published time-weighted average price by side, scaled by 1e6.",
			}, []string{"pool", "side"}),
			dailyVolume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "daily_volume",
				Help:      "Swap input volume in the current daily bucket.",
			}, []string{"pool"}),
			paused: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "trading_paused",
				Help:      "1 when trading is paused on the pool.",
			}, []string{"pool"}),
			tick: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "amm",
				Name:      "tick",
				Help:      "Current host tick.",
			}),
		}
		prometheus.MustRegister(
			ammRegistry.operations,
			ammRegistry.rejections,
			ammRegistry.latency,
			ammRegistry.events,
			ammRegistry.reserves,
			ammRegistry.twap,
			ammRegistry.dailyVolume,
			ammRegistry.paused,
			ammRegistry.tick,
		)
	})
	return ammRegistry
}

// ObserveOperation records one operation. reason is empty on success.
func (m *AMMMetrics) ObserveOperation(pool, operation, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	pool = labelOrUnknown(pool)
	operation = labelOrUnknown(operation)
	outcome := "success"
	if reason != "" {
		outcome = "rejected"
		m.rejections.WithLabelValues(pool, operation, reason).Inc()
	}
	m.operations.WithLabelValues(pool, operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvent counts a committed event.
func (m *AMMMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(labelOrUnknown(eventType)).Inc()
}

// RecordPool exports the pool snapshot as gauges.
func (m *AMMMetrics) RecordPool(snapshot PoolSnapshot) {
	if m == nil {
		return
	}
	pool := labelOrUnknown(snapshot.PoolID)
	m.reserves.WithLabelValues(pool, "a").Set(float64(snapshot.ReserveA))
	m.reserves.WithLabelValues(pool, "b").Set(float64(snapshot.ReserveB))
	m.twap.WithLabelValues(pool, "a").Set(float64(snapshot.TWAPA))
	m.twap.WithLabelValues(pool, "b").Set(float64(snapshot.TWAPB))
	m.dailyVolume.WithLabelValues(pool).Set(float64(snapshot.DailyVolume))
	paused := 0.0
	if snapshot.TradingPaused {
		paused = 1
	}
	m.paused.WithLabelValues(pool).Set(paused)
}

// SetTick exports the host tick.
func (m *AMMMetrics) SetTick(tick uint64) {
	if m == nil {
		return
	}
	m.tick.Set(float64(tick))
}

func labelOrUnknown(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matrixd",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Frames handled by message type.",
		},
		[]string{"type"},
	)
	protocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matrixd",
			Subsystem: "session",
			Name:      "protocol_errors_total",
			Help:      "ERROR replies and terminated connections by reason.",
		},
		[]string{"reason"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "matrixd",
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Currently connected clients.",
		},
	)
	computeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matrixd",
			Subsystem: "compute",
			Name:      "duration_seconds",
			Help:      "Anti-diagonal kernel wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
		[]string{"workers"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matrixd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matrixd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, protocolErrors, activeConnections, computeDuration, httpRequests, httpDuration)
	})
}

func RecordFrame(msgType string) {
	RegisterMetrics()
	framesTotal.WithLabelValues(msgType).Inc()
}

func RecordProtocolError(reason string) {
	RegisterMetrics()
	protocolErrors.WithLabelValues(reason).Inc()
}

func ConnectionOpened() {
	RegisterMetrics()
	activeConnections.Inc()
}

func ConnectionClosed() {
	RegisterMetrics()
	activeConnections.Dec()
}

func RecordCompute(workers int, duration time.Duration) {
	RegisterMetrics()
	computeDuration.WithLabelValues(strconv.Itoa(workers)).Observe(duration.Seconds())
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

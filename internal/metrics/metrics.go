package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// API
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests."},
		[]string{"handler", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms..~10s
		},
		[]string{"handler", "method"},
	)

	// Pipeline
	GatewaySendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_send_total", Help: "Gateway send outcomes."},
		[]string{"outcome"}, // sent | rejected | error
	)
	GatewaySendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_send_duration_seconds",
			Help:    "Gateway send latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms..~40s
		},
	)
	InsertRetryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "message_insert_retry_total", Help: "Retried inserts after a confirmed send."},
	)
	InsertLostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "message_insert_lost_total", Help: "Confirmed sends whose insert exhausted retries."},
	)
)

// Register default + our collectors
func MustRegister() {
	prometheus.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		HTTPRequests, HTTPDuration,
		GatewaySendTotal, GatewaySendDuration, InsertRetryTotal, InsertLostTotal,
	)
}

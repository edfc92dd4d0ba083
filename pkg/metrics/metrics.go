// Package metrics 提供 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "metatags"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// 生成指标，status: ok / bad_request / upstream_error / aborted
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "total",
			Help:      "Total number of meta tag generations by outcome",
		},
		[]string{"provider", "status"},
	)

	GenerationStreamedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "streamed_bytes_total",
			Help:      "Bytes relayed from the upstream model to callers",
		},
		[]string{"provider"},
	)

	// 上游模型调用
	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Upstream model stream duration in seconds, first request to end of stream",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	UpstreamCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_total",
			Help:      "Total number of upstream model calls",
		},
		[]string{"provider", "model", "status"},
	)
)

// RecordGeneration 记录一次生成结果
func RecordGeneration(provider, status string) {
	GenerationTotal.WithLabelValues(provider, status).Inc()
}

// RecordStreamedBytes 记录转发的字节数
func RecordStreamedBytes(provider string, n int) {
	if n > 0 {
		GenerationStreamedBytes.WithLabelValues(provider).Add(float64(n))
	}
}

// RecordUpstreamCall 记录上游调用
func RecordUpstreamCall(provider, model, status string, seconds float64) {
	UpstreamCallTotal.WithLabelValues(provider, model, status).Inc()
	UpstreamCallDuration.WithLabelValues(provider, model).Observe(seconds)
}

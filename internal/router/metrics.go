package router

import (
	"time"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 记录每个 JSON-RPC 方法的请求数与耗时
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the gateway collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dapputil",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "JSON-RPC requests handled by the gateway.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dapputil",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe 记录一次请求
func (m *Metrics) Observe(method string, resp *jsonrpc.Response, d time.Duration) {
	status := "ok"
	if resp == nil || resp.Error != nil {
		status = "error"
	}
	m.requests.WithLabelValues(method, status).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

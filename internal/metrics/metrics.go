// Package metrics 暴露 Prometheus 指标：请求分类计数、耗时、改写命中、代理错误与 WebSocket 会话。
//
// 所有方法对 nil *Metrics 安全，便于在测试或未启用指标的场景下直接传 nil。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "steamless"

// Metrics 持有独立的 Registry，避免与全局默认 Registry 冲突。
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rewrites    *prometheus.CounterVec
	proxyErrors *prometheus.CounterVec
	wsSessions  prometheus.Gauge
	wsMessages  *prometheus.CounterVec
}

// New 创建指标集合并注册 Go/进程采集器。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of handled requests by route kind and status code",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by route kind",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewrites_total",
			Help:      "Total number of rewritten client assets by asset name",
		}, []string{"asset"}),
		proxyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_errors_total",
			Help:      "Total number of upstream proxy failures by error code",
		}, []string{"code"}),
		wsSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_sessions",
			Help:      "Number of currently relayed websocket sessions",
		}),
		wsMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_total",
			Help:      "Total number of relayed websocket messages by direction",
		}, []string{"direction"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.rewrites,
		m.proxyErrors,
		m.wsSessions,
		m.wsMessages,
	)
	return m
}

// Registry 返回底层 Registry。
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 Prometheus 文本格式的 http.Handler。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest 记录一次请求的分类、状态码与耗时。
func (m *Metrics) ObserveRequest(kind string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RewriteApplied 记录一次资源改写。
func (m *Metrics) RewriteApplied(asset string) {
	if m == nil {
		return
	}
	m.rewrites.WithLabelValues(asset).Inc()
}

// ProxyError 记录一次上游失败。
func (m *Metrics) ProxyError(code string) {
	if m == nil {
		return
	}
	m.proxyErrors.WithLabelValues(code).Inc()
}

// WebSocketOpened 在会话建立后调用，返回的函数在会话结束时调用。
func (m *Metrics) WebSocketOpened() func() {
	if m == nil {
		return func() {}
	}
	m.wsSessions.Inc()
	return m.wsSessions.Dec
}

// WebSocketMessage 记录一条转发的消息，direction 为 upstream 或 downstream。
func (m *Metrics) WebSocketMessage(direction string) {
	if m == nil {
		return
	}
	m.wsMessages.WithLabelValues(direction).Inc()
}

// Package metrics ведёт счётчики Prometheus для сверки продаж.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reconciliation"

// Metrics реализует usecase.Metrics и собирает длительность HTTP-запросов.
type Metrics struct {
	registry *prometheus.Registry

	webhookLines  *prometheus.CounterVec
	delists       *prometheus.CounterVec
	salesAppended *prometheus.CounterVec
	salesDeleted  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New создаёт отдельный реестр, чтобы тесты и приложение не делили глобальное состояние.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		webhookLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_lines_total",
			Help: "Webhook sale lines by channel and outcome.",
		}, []string{"channel", "outcome"}),
		delists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "delist_calls_total",
			Help: "Cross-channel delist calls by channel and outcome.",
		}, []string{"channel", "outcome"}),
		salesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_appended_total",
			Help: "Sales written to the ledger by origin.",
		}, []string{"origin"}),
		salesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_deleted_total",
			Help: "Sales removed from the ledger by reason.",
		}, []string{"reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.webhookLines, m.delists, m.salesAppended, m.salesDeleted, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) WebhookLine(channel, outcome string) {
	m.webhookLines.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) Delist(channel, outcome string) {
	m.delists.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) SalesAppended(origin string, n int) {
	m.salesAppended.WithLabelValues(origin).Add(float64(n))
}

func (m *Metrics) SalesDeleted(reason string, n int) {
	m.salesDeleted.WithLabelValues(reason).Add(float64(n))
}

// ObserveHTTP записывает длительность запроса. route — шаблон маршрута chi.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry нужен тестам для чтения значений.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

const namespace = "loeschmich"

// Collector is a prometheus.Collector for the operator API and the
// workflow engine. It also keeps plain totals for the JSON snapshot.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   prometheus.Histogram
	deliveries     *prometheus.CounterVec
	tasks          *prometheus.CounterVec
	totalRequests  uint64
	errorRequests  uint64
	rateLimited    uint64
	totalDuration  uint64
	deliveryFaults uint64
}

func New() *Collector {
	return &Collector{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Operator API requests by status code.",
			}, []string{"code"},
		),
		httpDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Operator API request latency.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Outbound messages by kind and result.",
			}, []string{"kind", "result"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_executed_total",
				Help:      "Follow-up tasks executed by kind and final status.",
			}, []string{"kind", "status"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.deliveries.Describe(ch)
	c.tasks.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.deliveries.Collect(ch)
	c.tasks.Collect(ch)
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.httpDuration.Observe(duration.Seconds())
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == http.StatusTooManyRequests {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDuration, uint64(duration.Milliseconds()))
}

func (c *Collector) ObserveDelivery(kind string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
		atomic.AddUint64(&c.deliveryFaults, 1)
	}
	c.deliveries.WithLabelValues(kind, result).Inc()
}

func (c *Collector) ObserveTask(kind erasure.TaskKind, status erasure.TaskStatus) {
	c.tasks.WithLabelValues(string(kind), string(status)).Inc()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDuration)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":       total,
		"errorsTotal":         atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":    atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":       avg,
		"deliveryFailedTotal": atomic.LoadUint64(&c.deliveryFaults),
	}
}

// Handler serves the collector, plus Go runtime metrics, in the Prometheus
// text format.
func (c *Collector) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c, collectors.NewGoCollector())
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ erasure.Metrics = (*Collector)(nil)

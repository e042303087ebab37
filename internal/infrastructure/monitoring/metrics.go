package monitoring

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Metrics holds every Prometheus metric the sidecar exposes, registered on
// a private registry rather than the process-global default one.
type Metrics struct {
	registry *prometheus.Registry

	// Trigger metrics
	TriggersTotal prometheus.Counter
	InventorySize prometheus.Gauge

	// Pipeline metrics
	StageFailures *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec

	// Export metrics
	ExportedSpans *prometheus.CounterVec

	// Scrape metrics
	ScrapeRequests *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Mirrors of the two headline values, for logs
	triggers  atomic.Int64
	inventory atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMetrics creates and registers all metrics under the given namespace.
// A registration failure means the exposition would be wrong from the first
// scrape, so it is returned rather than tolerated.
func NewMetrics(namespace string) (*Metrics, error) {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		stop:      make(chan struct{}),

		TriggersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_total",
				Help:      "Total number of trigger signals received.",
			},
		),
		InventorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inventory_images",
				Help:      "Number of images reported by the last successful inventory call.",
			},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Pipeline runs that failed, by the stage that failed.",
			},
			[]string{"stage"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Pipeline run duration in seconds.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		ExportedSpans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exported_spans_total",
				Help:      "Finished spans handed to the trace reporter, by result.",
			},
			[]string{"result"},
		),
		ScrapeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrape_requests_total",
				Help:      "Requests served by the metrics endpoint.",
			},
			[]string{"method", "status"},
		),
		Uptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Sidecar uptime in seconds.",
			},
		),
	}

	toRegister := []prometheus.Collector{
		m.TriggersTotal,
		m.InventorySize,
		m.StageFailures,
		m.RunDuration,
		m.ExportedSpans,
		m.ScrapeRequests,
		m.Uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	// Both headline series exist from the first scrape on.
	m.TriggersTotal.Add(0)
	m.InventorySize.Set(0)

	go m.updateUptime()

	return m, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the text exposition of the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// updateUptime continuously updates the uptime metric until Close
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// Close stops background updates. Metric values stay readable.
func (m *Metrics) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// IncTriggers records one received trigger
func (m *Metrics) IncTriggers() {
	m.TriggersTotal.Inc()
	m.triggers.Add(1)
}

// SetInventorySize overwrites the inventory gauge
func (m *Metrics) SetInventorySize(count int) {
	m.InventorySize.Set(float64(count))
	m.inventory.Store(int64(count))
}

// RecordStageFailure records the stage a run failed in
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordRun records a finished run
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	m.RunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordExport records a reporter result ("ok", "error", "dropped")
func (m *Metrics) RecordExport(result string) {
	m.ExportedSpans.WithLabelValues(result).Inc()
}

// RecordScrape records one request to the metrics endpoint
func (m *Metrics) RecordScrape(method, status string) {
	m.ScrapeRequests.WithLabelValues(method, status).Inc()
}

// Snapshot holds the current headline values
type Snapshot struct {
	Triggers      int64
	InventorySize int64
}

// Snapshot returns the headline values without going through the registry
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Triggers:      m.triggers.Load(),
		InventorySize: m.inventory.Load(),
	}
}

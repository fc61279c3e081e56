package progress

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes run progress as Prometheus collectors, for embedding the
// exporter inside a long-running service
type Metrics struct {
	runsStarted    prometheus.Counter
	runsCompleted  *prometheus.CounterVec
	itemsProcessed prometheus.Counter
	itemsTotal     prometheus.Gauge
}

// NewMetrics creates and registers the progress collectors
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tms_export_runs_started_total",
			Help: "Number of export runs started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tms_export_runs_finished_total",
			Help: "Number of export runs finished, by terminal status.",
		}, []string{"status"}),
		itemsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tms_export_objects_processed_total",
			Help: "Number of catalog objects written to the export.",
		}),
		itemsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tms_export_objects_expected",
			Help: "Expected object count for the current run.",
		}),
	}
	reg.MustRegister(m.runsStarted, m.runsCompleted, m.itemsProcessed, m.itemsTotal)
	return m
}

func (m *Metrics) Started(u Update) {
	m.runsStarted.Inc()
	m.itemsTotal.Set(float64(u.Total))
}

func (m *Metrics) Progress(u Update) {
	m.itemsProcessed.Inc()
}

func (m *Metrics) Completed(u Update) {
	m.runsCompleted.WithLabelValues(u.Status).Inc()
}

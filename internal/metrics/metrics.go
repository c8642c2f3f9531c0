// Package metrics records one export run in a private Prometheus registry
// and writes it in the text exposition format, suitable for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tabexport"

type Recorder struct {
	registry *prometheus.Registry

	exports  *prometheus.CounterVec
	rows     *prometheus.GaugeVec
	bytes    *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_exports_total",
			Help:      "Table exports attempted, by outcome.",
		}, []string{"table", "result"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_exported",
			Help:      "Rows written by the last successful export of a table.",
		}, []string{"table"}),
		bytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Size of the last document written for a table.",
		}, []string{"table"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Wall time of the last export attempt of a table.",
		}, []string{"table"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the export run finished.",
		}),
	}
	r.registry.MustRegister(r.exports, r.rows, r.bytes, r.duration, r.lastRun)
	return r
}

// ObserveExport records one table export. A nil Recorder ignores the call.
func (r *Recorder) ObserveExport(table string, rows int, size int64, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(table).Set(elapsed.Seconds())
	if err != nil {
		r.exports.WithLabelValues(table, "failure").Inc()
		return
	}
	r.exports.WithLabelValues(table, "success").Inc()
	r.rows.WithLabelValues(table).Set(float64(rows))
	r.bytes.WithLabelValues(table).Set(float64(size))
}

// WriteFile stamps the run time and writes the registry to path.
func (r *Recorder) WriteFile(path string, now time.Time) error {
	if r == nil || path == "" {
		return nil
	}
	r.lastRun.Set(float64(now.Unix()))
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

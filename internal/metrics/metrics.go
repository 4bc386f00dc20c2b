// Package metrics counts migration outcomes for a single run and exports
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so repeated runs in one process (tests)
// never collide on registration.
type Recorder struct {
	registry *prometheus.Registry

	// MigrationsTotal counts migrations by outcome.
	MigrationsTotal *prometheus.CounterVec
	// Duration measures per-migration execution time.
	Duration prometheus.Histogram
	// Pending is the size of the resolved plan at the start of the run.
	Pending prometheus.Gauge
	// LastRun is the unix time the run finished.
	LastRun prometheus.Gauge
}

// New creates a Recorder with its metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		MigrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "migrate_migrations_total",
			Help: "Total number of migrations processed by outcome",
		}, []string{"status"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "migrate_migration_duration_seconds",
			Help:    "Execution time of individual migrations",
			Buckets: prometheus.DefBuckets,
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "migrate_pending_migrations",
			Help: "Migrations resolved as pending at the start of the run",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "migrate_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveMigration counts one migration outcome and its duration.
func (r *Recorder) ObserveMigration(outcome string, d time.Duration) {
	r.MigrationsTotal.WithLabelValues(outcome).Inc()
	r.Duration.Observe(d.Seconds())
}

// SetPending records the plan size.
func (r *Recorder) SetPending(n int) {
	r.Pending.Set(float64(n))
}

// MarkRun records when the run finished.
func (r *Recorder) MarkRun(t time.Time) {
	r.LastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}

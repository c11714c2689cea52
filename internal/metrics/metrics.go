// Package metrics exports run counters in the node_exporter textfile format
// so a cron-driven remap can be watched like any other batch job.
package metrics

import (
	"fmt"
	"time"

	"github.com/michaelscutari/remapid/internal/apply"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/remap"
	"github.com/michaelscutari/remapid/internal/scan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run collects the metrics of one invocation.
type Run struct {
	reg *prometheus.Registry

	objects    *prometheus.CounterVec
	warnings   prometheus.Counter
	identities *prometheus.GaugeVec
	scanned    *prometheus.CounterVec
	duration   *prometheus.GaugeVec
	lastRun    prometheus.Gauge
	success    prometheus.Gauge
}

// NewRun creates a registry for one invocation of mode ("scan", "map",
// "apply", "after").
func NewRun(mode string) *Run {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"mode": mode}
	f := promauto.With(reg)

	return &Run{
		reg: reg,
		objects: f.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "remapid_objects_total",
				Help:        "Filesystem objects by traversal outcome",
				ConstLabels: labels,
			},
			[]string{"result"}, // checked, changed, failed, skipped
		),
		warnings: f.NewCounter(prometheus.CounterOpts{
			Name:        "remapid_warnings_total",
			Help:        "Non-fatal problems reported during the run",
			ConstLabels: labels,
		}),
		identities: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "remapid_identities",
				Help:        "Scanned identities by kind and build outcome",
				ConstLabels: labels,
			},
			[]string{"kind", "outcome"}, // changed, unchanged, missing, duplicate
		),
		scanned: f.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "remapid_ids_scanned_total",
				Help:        "IDs looked up during a scan, by kind and whether a name was found",
				ConstLabels: labels,
			},
			[]string{"kind", "found"},
		),
		duration: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "remapid_phase_duration_seconds",
				Help:        "Wall time of each phase of the run",
				ConstLabels: labels,
			},
			[]string{"phase"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name:        "remapid_last_run_timestamp_seconds",
			Help:        "Unix time the run finished",
			ConstLabels: labels,
		}),
		success: f.NewGauge(prometheus.GaugeOpts{
			Name:        "remapid_last_run_success",
			Help:        "1 if the run finished without a fatal error",
			ConstLabels: labels,
		}),
	}
}

// ObserveScan records a scan result.
func (r *Run) ObserveScan(res scan.Result) {
	for _, kind := range ident.Kinds {
		k := res.Of(kind)
		r.scanned.WithLabelValues(kind.String(), "true").Add(float64(k.Found))
		r.scanned.WithLabelValues(kind.String(), "false").Add(float64(k.Scanned - k.Found))
	}
	r.duration.WithLabelValues("scan").Set(res.Elapsed().Seconds())
}

// ObserveBuild records a remap build.
func (r *Run) ObserveBuild(res remap.BuildResult, elapsed time.Duration) {
	for _, kind := range ident.Kinds {
		k := res.Of(kind)
		r.identities.WithLabelValues(kind.String(), "changed").Set(float64(k.Changed))
		r.identities.WithLabelValues(kind.String(), "unchanged").Set(float64(k.Unchanged))
		r.identities.WithLabelValues(kind.String(), "missing").Set(float64(k.Missing))
		r.identities.WithLabelValues(kind.String(), "duplicate").Set(float64(k.Duplicates))
		r.warnings.Add(float64(k.Missing + k.Duplicates))
	}
	r.duration.WithLabelValues("build").Set(elapsed.Seconds())
}

// ObserveTraversal records traversal counters.
func (r *Run) ObserveTraversal(s apply.Stats) {
	r.objects.WithLabelValues("checked").Add(float64(s.Checked))
	r.objects.WithLabelValues("changed").Add(float64(s.Changed))
	r.objects.WithLabelValues("failed").Add(float64(s.Failed))
	r.objects.WithLabelValues("skipped").Add(float64(s.Skipped))
	r.warnings.Add(float64(s.Warnings))
	r.duration.WithLabelValues("traverse").Set(s.Elapsed().Seconds())
}

// AddWarnings counts warnings raised outside the observed phases, such as
// malformed artifact lines.
func (r *Run) AddWarnings(n int64) {
	r.warnings.Add(float64(n))
}

// Finish stamps the run outcome.
func (r *Run) Finish(err error) {
	r.lastRun.SetToCurrentTime()
	if err == nil {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.reg
}

// WriteTextfile writes every metric to path atomically.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPipelineMetrics() {
	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wrfhydro_prep_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		},
		[]string{"stage"},
	)

	r.StageFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_stage_failures_total",
			Help: "Pipeline stages that aborted the run",
		},
		[]string{"stage"},
	)

	r.RunInfo = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_run_info",
			Help: "Run identity; always 1",
		},
		[]string{"run_id", "geogrid"},
	)

	r.RunLastSuccess = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished",
		},
	)

	r.OutputFilesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_output_files_total",
			Help: "Output files written",
		},
	)
}

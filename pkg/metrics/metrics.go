package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NewRegistry creates a new metrics registry with all metrics initialized.
// Each run owns its registry; nothing is registered globally.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initPipelineMetrics()
	r.initNetworkMetrics()
	r.initBasinMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordStage records one completed or failed pipeline stage
func (r *Registry) RecordStage(stage string, duration time.Duration, err error) {
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		r.StageFailures.WithLabelValues(stage).Inc()
	}
}

// SetRunInfo publishes the run id and domain as an info-style gauge
func (r *Registry) SetRunInfo(runID, geogrid string) {
	r.RunInfo.WithLabelValues(runID, geogrid).Set(1)
}

// MarkSuccess stamps the completion time of a successful run
func (r *Registry) MarkSuccess(at time.Time) {
	r.RunLastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes every metric in the node_exporter textfile format
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

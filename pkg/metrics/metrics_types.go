package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for one preprocessing run
type Registry struct {
	// Pipeline Metrics
	StageDuration    *prometheus.HistogramVec
	StageFailures    *prometheus.CounterVec
	RunInfo          *prometheus.GaugeVec
	RunLastSuccess   prometheus.Gauge
	OutputFilesTotal prometheus.Counter

	// Network Metrics
	ArcsTotal          prometheus.Gauge
	NodesTotal         prometheus.Gauge
	MultipartSkipped   prometheus.Counter
	StragglersTotal    prometheus.Counter
	TopologyMaxLevel   prometheus.Gauge
	NegativeDropsTotal prometheus.Counter
	SlopeFloorTotal    prometheus.Counter
	GagedArcsTotal     prometheus.Gauge

	// Basin Metrics
	BasinsTotal       prometheus.Gauge
	BasinsLostTotal   prometheus.Counter
	LakesTotal        prometheus.Gauge
	LakesDroppedTotal prometheus.Counter
	LakesShallowTotal prometheus.Counter

	registry *prometheus.Registry
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initNetworkMetrics() {
	r.ArcsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_arcs",
			Help: "Channel arcs in the routing network",
		},
	)

	r.NodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_nodes",
			Help: "Distinct arc endpoints in the routing network",
		},
	)

	r.MultipartSkipped = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_multipart_arcs_skipped_total",
			Help: "Vectorized stream features skipped because they had more than one part",
		},
	)

	r.StragglersTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_stragglers_total",
			Help: "Arcs with order > 1 and no upstream arc, reset to order 1",
		},
	)

	r.TopologyMaxLevel = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_topology_max_level",
			Help: "Deepest level in the arc ordering",
		},
	)

	r.NegativeDropsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_negative_drops_total",
			Help: "Arcs whose elevation drop was negative and clamped to zero",
		},
	)

	r.SlopeFloorTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_slope_floor_total",
			Help: "Arcs whose slope was replaced by the minimum slope",
		},
	)

	r.GagedArcsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_gaged_arcs",
			Help: "Arcs associated with a forecast point",
		},
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBasinMetrics() {
	r.BasinsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_gw_basins",
			Help: "Groundwater buckets after densification",
		},
	)

	r.BasinsLostTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_gw_basins_lost_total",
			Help: "Basin labels that disappeared when resampling to the coarse grid",
		},
	)

	r.LakesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "wrfhydro_prep_lakes",
			Help: "Lakes written to LAKEPARM",
		},
	)

	r.LakesDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_lakes_unresolved_total",
			Help: "Input lakes that did not resolve on the routing grid",
		},
	)

	r.LakesShallowTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "wrfhydro_prep_lakes_shallow_total",
			Help: "Lakes whose elevation range is below the minimum depth",
		},
	)
}

// Package basin aggregates labelled cells into groundwater buckets and
// lakes and derives their parameter tables.
package basin

import (
	"sort"

	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Densified is a label raster renumbered to 1..n.
type Densified struct {
	Raster *raster.Raster // ids 1..n, NoData elsewhere
	Labels []float64      // Labels[id-1] is the original label
	Counts []int          // Counts[id-1] is the number of cells with id
	Lost   []float64      // labels in before that no longer appear
}

// Labels returns the sorted distinct labels of r, without NoData.
func Labels(r *raster.Raster) []float64 {
	out := make([]float64, 0)
	for _, v := range r.Unique() {
		if !r.IsNoData(v) {
			out = append(out, v)
		}
	}
	return out
}

// Densify ranks the distinct labels of r in ascending order and replaces
// every label with its 1-based rank. NoData cells stay NoData. before lists
// the labels present prior to resampling; any of them missing from r are
// reported in Lost.
func Densify(r *raster.Raster, before []float64) *Densified {
	labels := Labels(r)
	rank := make(map[float64]int, len(labels))
	for i, v := range labels {
		rank[v] = i + 1
	}

	d := &Densified{
		Raster: raster.New(r.Geom, r.NoData),
		Labels: labels,
		Counts: make([]int, len(labels)),
	}
	for i, v := range r.Data {
		if r.IsNoData(v) {
			continue
		}
		id := rank[v]
		d.Raster.Data[i] = float64(id)
		d.Counts[id-1]++
	}

	for _, v := range before {
		if _, ok := rank[v]; !ok {
			d.Lost = append(d.Lost, v)
		}
	}
	sort.Float64s(d.Lost)
	return d
}

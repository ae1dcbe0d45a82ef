// Package raster holds single-band grids of float64 cells bound to a
// grid.Geometry, plus the resampling and file formats the pipeline needs.
package raster

import (
	"math"
	"sort"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
)

// Raster is a row-major single-band grid. Cells equal to NoData (or NaN)
// carry no value.
type Raster struct {
	Geom   grid.Geometry
	Data   []float64
	NoData float64
}

// New returns a raster on g with every cell set to NoData.
func New(g grid.Geometry, noData float64) *Raster {
	return Filled(g, noData, noData)
}

// Filled returns a raster on g with every cell set to v.
func Filled(g grid.Geometry, v, noData float64) *Raster {
	data := make([]float64, g.Len())
	for i := range data {
		data[i] = v
	}
	return &Raster{Geom: g, Data: data, NoData: noData}
}

// At returns the value at (row, col). The cell must be on the grid.
func (r *Raster) At(row, col int) float64 {
	return r.Data[r.Geom.Offset(row, col)]
}

// Set stores v at (row, col).
func (r *Raster) Set(row, col int, v float64) {
	r.Data[r.Geom.Offset(row, col)] = v
}

// IsNoData reports whether v is this raster's no-data marker.
func (r *Raster) IsNoData(v float64) bool {
	return v == r.NoData || math.IsNaN(v)
}

// Valid reports whether (row, col) is on the grid and holds data.
func (r *Raster) Valid(row, col int) bool {
	return r.Geom.Contains(row, col) && !r.IsNoData(r.At(row, col))
}

// Sample returns the value of the cell enclosing (x, y).
func (r *Raster) Sample(x, y float64) (float64, bool) {
	row, col := r.Geom.ToIndex(x, y)
	if !r.Valid(row, col) {
		return r.NoData, false
	}
	return r.At(row, col), true
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	return &Raster{Geom: r.Geom, Data: append([]float64(nil), r.Data...), NoData: r.NoData}
}

// Map returns a copy with fn applied to every cell.
func (r *Raster) Map(fn func(v float64) float64) *Raster {
	out := r.Clone()
	for i, v := range out.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// Unique returns the sorted distinct values, including the no-data marker
// when any cell carries it. NaN cells are reported as NoData.
func (r *Raster) Unique() []float64 {
	seen := make(map[float64]struct{})
	for _, v := range r.Data {
		if math.IsNaN(v) {
			v = r.NoData
		}
		seen[v] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// FlipRows returns a copy with row order reversed. NetCDF grids written by
// WPS run south to north; rasters here run north to south.
func (r *Raster) FlipRows() *Raster {
	out := r.Clone()
	rows, cols := r.Geom.Rows, r.Geom.Cols
	for row := 0; row < rows; row++ {
		copy(out.Data[row*cols:(row+1)*cols], r.Data[(rows-1-row)*cols:(rows-row)*cols])
	}
	return out
}

// ResampleNearest samples r at every cell center of target.
func (r *Raster) ResampleNearest(target grid.Geometry) *Raster {
	out := New(target, r.NoData)
	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			x, y := target.ToCoordinate(row, col)
			sr, sc := r.Geom.ToIndex(x, y)
			if r.Geom.Contains(sr, sc) {
				out.Set(row, col, r.At(sr, sc))
			}
		}
	}
	return out
}

// ResampleBilinear interpolates r at every cell center of target between
// the four surrounding source cell centers. Cells that would need a
// no-data neighbour fall back to nearest.
func (r *Raster) ResampleBilinear(target grid.Geometry) *Raster {
	out := New(target, r.NoData)
	g := r.Geom
	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			x, y := target.ToCoordinate(row, col)
			fc := (x-g.X00)/g.DX - 0.5
			fr := (y-g.Y00)/g.DY - 0.5
			c0, r0 := int(math.Floor(fc)), int(math.Floor(fr))
			tc, tr := fc-float64(c0), fr-float64(r0)

			if r.Valid(r0, c0) && r.Valid(r0, c0+1) && r.Valid(r0+1, c0) && r.Valid(r0+1, c0+1) {
				top := r.At(r0, c0)*(1-tc) + r.At(r0, c0+1)*tc
				bot := r.At(r0+1, c0)*(1-tc) + r.At(r0+1, c0+1)*tc
				out.Set(row, col, top*(1-tr)+bot*tr)
				continue
			}
			if v, ok := r.Sample(x, y); ok {
				out.Set(row, col, v)
			}
		}
	}
	return out
}

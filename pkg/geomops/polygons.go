package geomops

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// RasterizePolygons burns polygon ids into a raster on g. A cell takes the
// id of the last polygon containing its center; uncovered cells are 0.
func (Native) RasterizePolygons(polys []Polygon, g grid.Geometry) (*raster.Raster, error) {
	out := raster.Filled(g, 0, 0)
	ext := g.Extent()

	for _, p := range polys {
		b := p.Geom.Bounds()
		if b.Max.X < ext.XMin || b.Min.X > ext.XMax || b.Max.Y < ext.YMin || b.Min.Y > ext.YMax {
			continue
		}
		c0, c1 := span(b.Min.X, b.Max.X, g.X00, g.DX, g.Cols)
		r0, r1 := span(b.Min.Y, b.Max.Y, g.Y00, g.DY, g.Rows)
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				if center(g, row, col).Within(p.Geom) != geom.Outside {
					out.Set(row, col, float64(p.ID))
				}
			}
		}
	}
	return out, nil
}

// span converts a coordinate interval to a clamped index interval along one
// axis; step may be negative.
func span(lo, hi, origin, step float64, n int) (int, int) {
	a := int(math.Floor((lo - origin) / step))
	b := int(math.Floor((hi - origin) / step))
	if a > b {
		a, b = b, a
	}
	if a < 0 {
		a = 0
	}
	if b > n-1 {
		b = n - 1
	}
	return a, b
}

// Centroid returns the area-weighted centroid of p.
func (Native) Centroid(p Polygon) (x, y float64) {
	c := p.Geom.Centroid()
	return c.X, c.Y
}

// Area returns the polygon's area in km², preferring the attribute value.
func Area(p Polygon) float64 {
	if p.AreaKm2 > 0 {
		return p.AreaKm2
	}
	return p.Geom.Area() / 1e6
}

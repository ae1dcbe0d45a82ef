// Package geomops holds the vector side of the pipeline: stream
// vectorization, polygon rasterization and shapefile input.
package geomops

import (
	"github.com/ctessum/geom"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Feature is one vectorized stream link. FromNode and ToNode identify the
// link's endpoints; endpoints shared between links carry the same id.
type Feature struct {
	Geom     geom.MultiLineString
	FromNode int
	ToNode   int
	Cells    []int // row-major offsets of the channel cells on this link
}

// Polygon is a lake or basin outline in grid coordinates.
type Polygon struct {
	ID      int
	AreaKm2 float64 // from the attribute table; 0 when absent
	Geom    geom.Polygonal
}

// Ops is the vector-processing boundary.
type Ops interface {
	VectorizeStreams(streams, fdir *raster.Raster) ([]Feature, error)
	RasterizePolygons(polys []Polygon, g grid.Geometry) (*raster.Raster, error)
	Centroid(p Polygon) (x, y float64)
}

package basin

import (
	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/geomops"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Bucket is one GWBUCKPARM row.
type Bucket struct {
	Basin   int
	Coeff   float64
	Expon   float64
	Zmax    float64
	Zinit   float64
	AreaKm2 float64
	ComID   int // label of the basin before densification
}

// Buckets is the groundwater bucket table and its coarse-grid raster
// (GWBASINS).
type Buckets struct {
	Rows []Bucket
	Grid *raster.Raster
	Lost []float64
}

// BuildBuckets resamples the fine-grid basin raster to the coarse grid,
// renumbers the surviving basins 1..n and attaches the bucket constants.
func BuildBuckets(fine *raster.Raster, coarse grid.Geometry, gw config.Groundwater, logger logging.Logger) *Buckets {
	before := Labels(fine)
	d := Densify(fine.ResampleNearest(coarse), before)

	for _, l := range d.Lost {
		logger.Warn("basin lost in resampling to the coarse grid", logging.Basin(int(l)))
	}

	cellKm2 := coarse.CellArea() / 1e6
	b := &Buckets{Grid: d.Raster, Lost: d.Lost, Rows: make([]Bucket, len(d.Labels))}
	for i, label := range d.Labels {
		b.Rows[i] = Bucket{
			Basin:   i + 1,
			Coeff:   gw.Coeff,
			Expon:   gw.Expon,
			Zmax:    gw.Zmax,
			Zinit:   gw.Zinit,
			AreaKm2: float64(d.Counts[i]) * cellKm2,
			ComID:   int(label),
		}
	}

	logger.Info("groundwater buckets built",
		logging.Int("fine_basins", len(before)),
		logging.Int("buckets", len(b.Rows)),
		logging.Int("lost", len(b.Lost)))
	return b
}

// Rasterize burns polygons onto g and turns unburned cells (0) into NoData.
func Rasterize(ops geomops.Ops, polys []geomops.Polygon, g grid.Geometry, noData float64) (*raster.Raster, error) {
	r, err := ops.RasterizePolygons(polys, g)
	if err != nil {
		return nil, err
	}
	r.NoData = noData
	for i, v := range r.Data {
		if v == 0 {
			r.Data[i] = noData
		}
	}
	return r, nil
}

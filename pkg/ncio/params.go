package ncio

import (
	"github.com/dd0wney/wrfhydro-prep/pkg/basin"
)

// BucketTable lays out the groundwater buckets as GWBUCKPARM columns.
func BucketTable(b *basin.Buckets) Table {
	n := len(b.Rows)
	col := func(fn func(r basin.Bucket) float64) []float64 {
		out := make([]float64, n)
		for i, r := range b.Rows {
			out[i] = fn(r)
		}
		return out
	}
	return Table{
		Records: n,
		Columns: []Column{
			{Name: "Basin", Kind: Int32, Attrs: long("Basin monotonic ID (1...n)", ""), Values: col(func(r basin.Bucket) float64 { return float64(r.Basin) })},
			{Name: "Coeff", Kind: Float32, Attrs: long("Coefficient", "m3 s-1"), Values: col(func(r basin.Bucket) float64 { return r.Coeff })},
			{Name: "Expon", Kind: Float32, Attrs: long("Exponent", ""), Values: col(func(r basin.Bucket) float64 { return r.Expon })},
			{Name: "Zmax", Kind: Float32, Attrs: long("Zmax", "mm"), Values: col(func(r basin.Bucket) float64 { return r.Zmax })},
			{Name: "Zinit", Kind: Float32, Attrs: long("Zinit", "mm"), Values: col(func(r basin.Bucket) float64 { return r.Zinit })},
			{Name: "Area_sqkm", Kind: Float32, Attrs: long("Basin area", "km2"), Values: col(func(r basin.Bucket) float64 { return r.AreaKm2 })},
			{Name: "ComID", Kind: Int32, Attrs: long("Basin label before renumbering", ""), Values: col(func(r basin.Bucket) float64 { return float64(r.ComID) })},
		},
	}
}

// WriteGWBuckets writes GWBUCKPARM to path.
func WriteGWBuckets(path string, b *basin.Buckets) error {
	return WriteTable(path, BucketTable(b))
}

// WriteGWBasins writes the coarse-grid basin raster (GWBASINS) to path.
func WriteGWBasins(path string, b *basin.Buckets) error {
	layers := []Layer{{Name: "BASIN", Kind: Int32, Raster: b.Grid, Desc: "groundwater basin id"}}
	return WriteGrid(path, b.Grid.Geom, layers, nil)
}

// LakeTable lays out the lakes as LAKEPARM columns.
func LakeTable(s *basin.LakeSet) Table {
	n := len(s.Lakes)
	col := func(fn func(l basin.Lake) float64) []float64 {
		out := make([]float64, n)
		for i, l := range s.Lakes {
			out[i] = fn(l)
		}
		return out
	}
	asc := make([]float64, n)
	for i, v := range s.AscendingIndex() {
		asc[i] = float64(v)
	}
	return Table{
		Records: n,
		Global: []Attr{
			{Name: "featureType", Value: "timeSeries"},
			{Name: "Conventions", Value: "CF-1.5"},
		},
		Columns: []Column{
			{Name: "lake_id", Kind: Int32, Attrs: long("Lake ID", ""), Values: col(func(l basin.Lake) float64 { return float64(l.ID) })},
			{Name: "LkArea", Kind: Float32, Attrs: long("Gridded lake area", "km^2"), Values: col(func(l basin.Lake) float64 { return l.AreaKm2 })},
			{Name: "LkMxE", Kind: Float32, Attrs: long("Maximum lake elevation", "m ASL"), Values: col(func(l basin.Lake) float64 { return l.MaxElev })},
			{Name: "WeirC", Kind: Float32, Attrs: long("Weir coefficient", ""), Values: col(func(l basin.Lake) float64 { return l.WeirC })},
			{Name: "WeirL", Kind: Float32, Attrs: long("Weir length", "m"), Values: col(func(l basin.Lake) float64 { return l.WeirL })},
			{Name: "OrificeC", Kind: Float32, Attrs: long("Orifice coefficient", ""), Values: col(func(l basin.Lake) float64 { return l.OrificeC })},
			{Name: "OrificeA", Kind: Float32, Attrs: long("Orifice cross-sectional area", "m^2"), Values: col(func(l basin.Lake) float64 { return l.OrificeA })},
			{Name: "OrificeE", Kind: Float32, Attrs: long("Orifice elevation", "m ASL"), Values: col(func(l basin.Lake) float64 { return l.OrificeE })},
			{Name: "lat", Kind: Float32, Attrs: long("latitude of the lake centroid", "degrees_north"), Values: col(func(l basin.Lake) float64 { return l.Lat })},
			{Name: "lon", Kind: Float32, Attrs: long("longitude of the lake centroid", "degrees_east"), Values: col(func(l basin.Lake) float64 { return l.Lon })},
			{Name: "time", Kind: Int32, Attrs: long("time of measurement", "days since 2000-01-01 00:00:00"), Values: make([]float64, n)},
			{Name: "WeirE", Kind: Float32, Attrs: long("Weir elevation", "m ASL"), Values: col(func(l basin.Lake) float64 { return l.WeirE })},
			{Name: "ascendingIndex", Kind: Int32, Attrs: long("Index to use for sorting IDs (ascending)", ""), Values: asc},
			{Name: "ifd", Kind: Float32, Attrs: long("Initial fraction water depth", ""), Values: col(func(l basin.Lake) float64 { return l.IFD })},
		},
	}
}

// WriteLakeParm writes LAKEPARM to path.
func WriteLakeParm(path string, s *basin.LakeSet) error {
	return WriteTable(path, LakeTable(s))
}

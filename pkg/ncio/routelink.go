package ncio

import (
	"github.com/dd0wney/wrfhydro-prep/pkg/routing"
)

// File names of the parameter deck.
const (
	RouteLinkFile = "Route_Link.nc"
	GWBucketsFile = "GWBUCKPARM.nc"
	GWBasinsFile  = "GWBASINS.nc"
	LakeParmFile  = "LAKEPARM.nc"
	FulldomFile   = "Fulldom_hires.nc"
)

// IDLengthDim is the character dimension of the gages variable.
const IDLengthDim = "IDLength"

func long(name, u string) []Attr {
	a := []Attr{{Name: "long_name", Value: name}}
	if u != "" {
		a = append(a, Attr{Name: "units", Value: u})
	}
	return a
}

// RouteLinkTable lays out the routing table as Route_Link columns.
func RouteLinkTable(t *routing.Table) Table {
	n := len(t.Links)
	col := func(fn func(l routing.Link) float64) []float64 {
		out := make([]float64, n)
		for i, l := range t.Links {
			out[i] = fn(l)
		}
		return out
	}
	gages := make([]string, n)
	for i, l := range t.Links {
		gages[i] = l.Gage
	}

	return Table{
		Records: n,
		StrDim:  IDLengthDim,
		StrLen:  t.GageWidth,
		Global: []Attr{
			{Name: "featureType", Value: "timeSeries"},
			{Name: "Conventions", Value: "CF-1.5"},
		},
		Columns: []Column{
			{Name: "link", Kind: Int32, Attrs: long("Link ID", ""), Values: col(func(l routing.Link) float64 { return float64(l.Link) })},
			{Name: "from", Kind: Int32, Attrs: long("From Link ID", ""), Values: col(func(l routing.Link) float64 { return float64(l.From) })},
			{Name: "to", Kind: Int32, Attrs: long("To Link ID", ""), Values: col(func(l routing.Link) float64 { return float64(l.To) })},
			{Name: "lon", Kind: Float32, Attrs: long("longitude of the segment start", "degrees_east"), Values: col(func(l routing.Link) float64 { return l.Lon })},
			{Name: "lat", Kind: Float32, Attrs: long("latitude of the segment start", "degrees_north"), Values: col(func(l routing.Link) float64 { return l.Lat })},
			{Name: "alt", Kind: Float32, Attrs: long("Elevation in meters at start node", "meters"), Values: col(func(l routing.Link) float64 { return l.Alt })},
			{Name: "order", Kind: Int32, Attrs: long("Stream order (Strahler)", ""), Values: col(func(l routing.Link) float64 { return float64(l.Order) })},
			{Name: "Qi", Kind: Float32, Attrs: long("Initial flow in link", "m3 s-1"), Values: col(func(l routing.Link) float64 { return l.Qi })},
			{Name: "MusK", Kind: Float32, Attrs: long("Muskingum routing time", "seconds"), Values: col(func(l routing.Link) float64 { return l.MusK })},
			{Name: "MusX", Kind: Float32, Attrs: long("Muskingum weighting coefficient", ""), Values: col(func(l routing.Link) float64 { return l.MusX })},
			{Name: "Length", Kind: Float32, Attrs: long("Stream length", "meters"), Values: col(func(l routing.Link) float64 { return l.Length })},
			{Name: "n", Kind: Float32, Attrs: long("Manning's roughness", ""), Values: col(func(l routing.Link) float64 { return l.N })},
			{Name: "So", Kind: Float32, Attrs: long("Slope", "meters / meters"), Values: col(func(l routing.Link) float64 { return l.So })},
			{Name: "ChSlp", Kind: Float32, Attrs: long("Channel side slope", "meters / meters"), Values: col(func(l routing.Link) float64 { return l.ChSlp })},
			{Name: "BtmWdth", Kind: Float32, Attrs: long("Bottom width of channel", "meters"), Values: col(func(l routing.Link) float64 { return l.BtmWdth })},
			{Name: "time", Kind: Int32, Attrs: long("time of measurement", "days since 2000-01-01 00:00:00"), Values: make([]float64, n)},
			{Name: "x", Kind: Float32, Attrs: long("x coordinate of projection", "m"), Values: col(func(l routing.Link) float64 { return l.X })},
			{Name: "y", Kind: Float32, Attrs: long("y coordinate of projection", "m"), Values: col(func(l routing.Link) float64 { return l.Y })},
			{Name: "Kchan", Kind: Int16, Attrs: long("Channel conductivity", "mm h-1"), Values: col(func(l routing.Link) float64 { return l.Kchan })},
			{Name: "gages", Kind: Char, Attrs: long("Gage ID", ""), Text: gages},
			{Name: "NHDWaterbodyComID", Kind: Int32, Attrs: long("ID of the lake element that intersects this flowline", ""), Values: col(func(l routing.Link) float64 { return float64(l.Waterbody) })},
		},
	}
}

// WriteRouteLink writes t to path.
func WriteRouteLink(path string, t *routing.Table) error {
	return WriteTable(path, RouteLinkTable(t))
}

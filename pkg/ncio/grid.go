package ncio

import (
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/cdf"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// CRSVar names the grid-mapping variable of every grid file.
const CRSVar = "crs"

const crsDim = "crs_strlen"

// Layer is one 2-D grid variable. Raster must share the file geometry.
type Layer struct {
	Name   string
	Kind   Kind
	Raster *raster.Raster
	Units  string
	Desc   string
}

// WriteGrid writes layers on g as (y, x) variables, row 0 north, with
// x/y cell-center coordinates and a crs variable.
func WriteGrid(path string, g grid.Geometry, layers []Layer, global []Attr) error {
	const op = "ncio.WriteGrid"
	for _, l := range layers {
		if l.Raster == nil || !l.Raster.Geom.SameShape(g) {
			return hydroerr.IO(op, path, fmt.Errorf("layer %s does not match the %dx%d grid", l.Name, g.Rows, g.Cols))
		}
	}

	proj4 := g.Proj.Proj4()
	if proj4 == "" {
		proj4 = grid.GeographicProj4()
	}
	h := cdf.NewHeader([]string{"y", "x", crsDim}, []int{g.Rows, g.Cols, len(proj4)})
	for _, a := range global {
		h.AddAttribute("", a.Name, a.Value)
	}

	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddAttribute("x", "standard_name", "projection_x_coordinate")
	h.AddAttribute("x", "long_name", "x coordinate of projection")
	h.AddAttribute("x", "units", "m")
	h.AddAttribute("x", "_CoordinateAxisType", "GeoX")
	h.AddAttribute("x", "resolution", []float64{g.DX})
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddAttribute("y", "standard_name", "projection_y_coordinate")
	h.AddAttribute("y", "long_name", "y coordinate of projection")
	h.AddAttribute("y", "units", "m")
	h.AddAttribute("y", "_CoordinateAxisType", "GeoY")
	h.AddAttribute("y", "resolution", []float64{g.DY})

	h.AddVariable(CRSVar, []string{crsDim}, "")
	for _, a := range crsAttrs(g, proj4) {
		h.AddAttribute(CRSVar, a.Name, a.Value)
	}

	for _, l := range layers {
		h.AddVariable(l.Name, []string{"y", "x"}, l.Kind.template())
		h.AddAttribute(l.Name, "grid_mapping", CRSVar)
		h.AddAttribute(l.Name, "esri_pe_string", proj4)
		if l.Units != "" {
			h.AddAttribute(l.Name, "units", l.Units)
		}
		if l.Desc != "" {
			h.AddAttribute(l.Name, "long_name", l.Desc)
		}
		h.AddAttribute(l.Name, "missing_value", fillAttr(l.Kind, l.Raster.NoData))
	}
	h.Define()
	if err := headerError(h); err != nil {
		return hydroerr.IO(op, path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return hydroerr.IO(op, path, err)
	}
	defer f.Close()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return hydroerr.IO(op, path, err)
	}

	xs, ys := coordinates(g)
	if err := writeAll(nc, "x", xs); err != nil {
		return hydroerr.IO(op, path, err)
	}
	if err := writeAll(nc, "y", ys); err != nil {
		return hydroerr.IO(op, path, err)
	}
	if _, err := nc.Writer(CRSVar, []int{0}, []int{len(proj4)}).Write(proj4); err != nil {
		return hydroerr.IO(op, path, fmt.Errorf("variable %s: %w", CRSVar, err))
	}
	for _, l := range layers {
		if err := writeAll(nc, l.Name, convert(l.Kind, l.Raster.Data, l.Raster.NoData)); err != nil {
			return hydroerr.IO(op, path, fmt.Errorf("variable %s: %w", l.Name, err))
		}
	}
	return f.Close()
}

func writeAll(nc *cdf.File, name string, data any) error {
	end := nc.Header.Lengths(name)
	start := make([]int, len(end))
	_, err := nc.Writer(name, start, end).Write(data)
	return err
}

// coordinates returns the cell-center x of each column and y of each row.
func coordinates(g grid.Geometry) (xs, ys []float64) {
	xs = make([]float64, g.Cols)
	for col := range xs {
		xs[col], _ = g.ToCoordinate(0, col)
	}
	ys = make([]float64, g.Rows)
	for row := range ys {
		_, ys[row] = g.ToCoordinate(row, 0)
	}
	return xs, ys
}

func crsAttrs(g grid.Geometry, proj4 string) []Attr {
	cf := g.Proj.CFAttributes()
	names := make([]string, 0, len(cf))
	for k := range cf {
		names = append(names, k)
	}
	sort.Strings(names)

	attrs := make([]Attr, 0, len(names)+2)
	for _, k := range names {
		attrs = append(attrs, Attr{Name: k, Value: cf[k]})
	}
	return append(attrs,
		Attr{Name: "spatial_ref", Value: proj4},
		Attr{Name: "GeoTransform", Value: g.GeoTransformString()},
	)
}

func fillAttr(k Kind, noData float64) any {
	switch k {
	case Int16:
		return []int16{int16(noData)}
	case Int32:
		return []int32{int32(noData)}
	case Float32:
		return []float32{float32(noData)}
	default:
		return []float64{noData}
	}
}

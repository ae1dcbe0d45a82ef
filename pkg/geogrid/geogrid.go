// Package geogrid reads the WPS GEOGRID file that defines a model domain:
// its projection, the coarse grid geometry and the coarse terrain height.
package geogrid

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// cornerIndex selects the north-west corner of the unstaggered mass grid
// among the sixteen corner_lats/corner_lons entries.
const cornerIndex = 13

// Domain is the parsed content of a GEOGRID file.
type Domain struct {
	Path     string
	Params   grid.ProjectionParams
	Geometry grid.Geometry // coarse (land-surface) grid, north-up
	Height   *raster.Raster
}

// Open reads the GEOGRID at path. The coarse HGT_M field is stored south
// to north and is flipped so row 0 is the northern edge.
func Open(path string, noData float64) (*Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hydroerr.IO("geogrid.Open", path, err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, hydroerr.IO("geogrid.Open", path, err)
	}
	return decode(path, nc, noData)
}

func decode(path string, nc *cdf.File, noData float64) (*Domain, error) {
	h := nc.Header
	attr := attributes{h: h}

	params := grid.ProjectionParams{
		MapProj:  int(attr.float("MAP_PROJ")),
		TrueLat1: attr.float("TRUELAT1"),
		StandLon: attr.float("STAND_LON"),
		PoleLat:  attr.floatOr("POLE_LAT", 90),
		PoleLon:  attr.floatOr("POLE_LON", 0),
	}
	if v, ok := attr.lookup("TRUELAT2"); ok {
		params.TrueLat2, params.HasTrueLat2 = v[0], true
	}
	if v, ok := attr.lookup("MOAD_CEN_LAT"); ok {
		params.LatOrigin = v[0]
	} else {
		params.LatOrigin = attr.float("CEN_LAT")
	}
	dx, dy := attr.float("DX"), attr.float("DY")
	lats, latOK := attr.lookup("corner_lats")
	lons, lonOK := attr.lookup("corner_lons")
	if attr.err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "geogrid.Open").Path(path).Cause(attr.err).Err()
	}
	if !latOK || !lonOK || len(lats) <= cornerIndex || len(lons) <= cornerIndex {
		return nil, hydroerr.Unsupported("geogrid.Open", "%s: corner_lats/corner_lons missing or short", path)
	}

	proj, err := grid.NewProjection(params)
	if err != nil {
		return nil, err
	}

	conv, err := grid.NewConverter(proj)
	if err != nil {
		return nil, err
	}
	x00, y00, err := conv.FromLatLon(lats[cornerIndex], lons[cornerIndex])
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "geogrid.Open").Path(path).Cause(err).Err()
	}

	cols, rows, err := dimensions(h)
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "geogrid.Open").Path(path).Cause(err).Err()
	}
	// DY is positive in the file; the grid is north-up.
	g := grid.New(proj, x00, y00, dx, -dy, rows, cols)

	hgt, err := readHeight(nc, g, noData)
	if err != nil {
		return nil, hydroerr.IO("geogrid.Open", path, err)
	}
	return &Domain{Path: path, Params: params, Geometry: g, Height: hgt}, nil
}

func dimensions(h *cdf.Header) (cols, rows int, err error) {
	lengths := h.Lengths("HGT_M")
	dims := h.Dimensions("HGT_M")
	if len(lengths) < 2 || len(dims) != len(lengths) {
		return 0, 0, fmt.Errorf("HGT_M not found or not 2-D")
	}
	for i, d := range dims {
		switch d {
		case "west_east":
			cols = lengths[i]
		case "south_north":
			rows = lengths[i]
		}
	}
	if cols == 0 || rows == 0 {
		return 0, 0, fmt.Errorf("HGT_M lacks west_east/south_north dimensions")
	}
	return cols, rows, nil
}

func readHeight(nc *cdf.File, g grid.Geometry, noData float64) (*raster.Raster, error) {
	buf := make([]float32, g.Len())
	if _, err := nc.Reader("HGT_M", nil, nil).Read(buf); err != nil {
		return nil, fmt.Errorf("reading HGT_M: %w", err)
	}
	r := raster.New(g, noData)
	for i, v := range buf {
		r.Data[i] = float64(v)
	}
	return r.FlipRows(), nil
}

// attributes reads numeric global attributes, remembering the first
// missing required one.
type attributes struct {
	h   *cdf.Header
	err error
}

func (a *attributes) lookup(name string) ([]float64, bool) {
	switch v := a.h.GetAttribute("", name).(type) {
	case []float64:
		return v, len(v) > 0
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, len(out) > 0
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, len(out) > 0
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

func (a *attributes) float(name string) float64 {
	v, ok := a.lookup(name)
	if !ok {
		if a.err == nil {
			a.err = fmt.Errorf("global attribute %s missing", name)
		}
		return 0
	}
	return v[0]
}

func (a *attributes) floatOr(name string, def float64) float64 {
	if v, ok := a.lookup(name); ok {
		return v[0]
	}
	return def
}

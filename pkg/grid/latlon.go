package grid

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// Converter moves points between a grid's projection and lon/lat on the
// WRF sphere.
type Converter struct {
	toGeo   proj.Transformer
	fromGeo proj.Transformer
}

// NewConverter builds both transform directions for p.
func NewConverter(p Projection) (*Converter, error) {
	src, err := p.SR()
	if err != nil {
		return nil, err
	}
	geo, err := proj.Parse(GeographicProj4())
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "grid.NewConverter").Cause(err).Err()
	}
	toGeo, err := src.NewTransform(geo)
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "grid.NewConverter").Cause(err).Err()
	}
	fromGeo, err := geo.NewTransform(src)
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "grid.NewConverter").Cause(err).Err()
	}
	return &Converter{toGeo: toGeo, fromGeo: fromGeo}, nil
}

// ToLatLon converts projected (x, y) to latitude and longitude in degrees.
func (c *Converter) ToLatLon(x, y float64) (lat, lon float64, err error) {
	g, err := geom.Point{X: x, Y: y}.Transform(c.toGeo)
	if err != nil {
		return 0, 0, err
	}
	p := g.(geom.Point)
	return p.Y, p.X, nil
}

// FromLatLon converts latitude and longitude in degrees to projected (x, y).
func (c *Converter) FromLatLon(lat, lon float64) (x, y float64, err error) {
	g, err := geom.Point{X: lon, Y: lat}.Transform(c.fromGeo)
	if err != nil {
		return 0, 0, err
	}
	p := g.(geom.Point)
	return p.X, p.Y, nil
}

// Transformer exposes the projected-to-geographic transform for callers
// that project whole geometries.
func (c *Converter) Transformer() proj.Transformer {
	return c.toGeo
}

package geomops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// ReadPolygons decodes a polygon shapefile and projects it onto proj.
// Ids come from idField when set, otherwise features are numbered 1..n in
// file order. areaField, when set and present, supplies AreaKm2.
func ReadPolygons(path string, proj grid.Projection, idField, areaField string) ([]Polygon, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, hydroerr.IO("geomops.ReadPolygons", path, err)
	}
	defer dec.Close()

	src, err := dec.SR()
	if err != nil {
		return nil, hydroerr.IO("geomops.ReadPolygons", path, fmt.Errorf("reading .prj: %w", err))
	}
	dst, err := proj.SR()
	if err != nil {
		return nil, err
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "geomops.ReadPolygons").Path(path).Cause(err).Err()
	}

	var columns []string
	for _, f := range []string{idField, areaField} {
		if f != "" {
			columns = append(columns, f)
		}
	}

	var polys []Polygon
	for n := 1; ; n++ {
		g, fields, more := dec.DecodeRowFields(columns...)
		if !more {
			break
		}
		gg, err := g.Transform(trans)
		if err != nil {
			return nil, hydroerr.IO("geomops.ReadPolygons", path, err)
		}
		poly, ok := gg.(geom.Polygonal)
		if !ok {
			return nil, hydroerr.Unsupported("geomops.ReadPolygons", "%s: feature %d is %T, not a polygon", path, n, gg)
		}

		p := Polygon{ID: n, Geom: poly}
		if idField != "" {
			s, ok := fields[idField]
			if !ok {
				return nil, hydroerr.Unsupported("geomops.ReadPolygons", "%s: missing attribute column %s", path, idField)
			}
			id, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, hydroerr.Unsupported("geomops.ReadPolygons", "%s: feature %d: %s=%q is not numeric", path, n, idField, s)
			}
			p.ID = int(id)
		}
		if s, ok := fields[areaField]; ok && areaField != "" {
			if a, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				p.AreaKm2 = a
			}
		}
		polys = append(polys, p)
	}
	if err := dec.Error(); err != nil {
		return nil, hydroerr.IO("geomops.ReadPolygons", path, err)
	}
	return polys, nil
}

package grid

import (
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom/proj"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// SphereRadius is the WRF earth radius in meters. All projected grids and
// all point lat/lon outputs use this sphere.
const SphereRadius = 6370000.0

// Family is a WRF MAP_PROJ code.
type Family int

const (
	Unprojected            Family = 0
	LambertConformal       Family = 1
	PolarStereographic     Family = 2
	Mercator               Family = 3
	CylindricalEquidistant Family = 6
)

func (f Family) String() string {
	switch f {
	case LambertConformal:
		return "Lambert Conformal Conic"
	case PolarStereographic:
		return "Polar Stereographic"
	case Mercator:
		return "Mercator"
	case CylindricalEquidistant:
		return "Cylindrical Equidistant"
	default:
		return fmt.Sprintf("MAP_PROJ=%d", int(f))
	}
}

// ProjectionParams are the GEOGRID global attributes that define a projection.
type ProjectionParams struct {
	MapProj     int
	TrueLat1    float64
	TrueLat2    float64
	HasTrueLat2 bool
	StandLon    float64
	LatOrigin   float64 // MOAD_CEN_LAT, else CEN_LAT
	PoleLat     float64
	PoleLon     float64
}

// Projection is a WRF map projection on the WRF sphere.
type Projection struct {
	Family      Family
	TrueLat1    float64
	TrueLat2    float64
	HasTrueLat2 bool
	StandLon    float64
	LatOrigin   float64
	PoleLat     float64
	ScaleFactor float64 // polar stereographic only
}

// NewProjection validates params and builds a Projection. Rotated-pole
// cylindrical equidistant grids and unknown MAP_PROJ codes are rejected.
func NewProjection(p ProjectionParams) (Projection, error) {
	out := Projection{
		Family:      Family(p.MapProj),
		TrueLat1:    p.TrueLat1,
		TrueLat2:    p.TrueLat2,
		HasTrueLat2: p.HasTrueLat2,
		StandLon:    p.StandLon,
		LatOrigin:   p.LatOrigin,
		PoleLat:     p.PoleLat,
	}

	switch out.Family {
	case LambertConformal, Mercator:
	case PolarStereographic:
		// Sphere form of Rollins (2011): k0 = (1 + sin|phi1|) / 2.
		out.ScaleFactor = (1 + math.Sin(math.Abs(p.TrueLat1)*math.Pi/180)) / 2
	case CylindricalEquidistant:
		if p.PoleLat != 90 || p.PoleLon != 0 {
			return Projection{}, hydroerr.Unsupported("grid.NewProjection",
				"cylindrical equidistant with a rotated pole (POLE_LAT=%g, POLE_LON=%g)", p.PoleLat, p.PoleLon)
		}
	default:
		return Projection{}, hydroerr.Unsupported("grid.NewProjection", "map projection code %d", p.MapProj)
	}
	return out, nil
}

// Proj4 returns the projection as a proj4 definition on the WRF sphere.
func (p Projection) Proj4() string {
	var b strings.Builder
	switch p.Family {
	case LambertConformal:
		if p.HasTrueLat2 {
			fmt.Fprintf(&b, "+proj=lcc +lat_1=%v +lat_2=%v +lat_0=%v +lon_0=%v", p.TrueLat1, p.TrueLat2, p.LatOrigin, p.StandLon)
		} else {
			fmt.Fprintf(&b, "+proj=lcc +lat_1=%v +lat_0=%v +lon_0=%v +k_0=1", p.LatOrigin, p.LatOrigin, p.StandLon)
		}
	case PolarStereographic:
		fmt.Fprintf(&b, "+proj=stere +lat_0=%v +lon_0=%v +k_0=%v", p.PoleLat, p.StandLon, p.ScaleFactor)
	case Mercator:
		fmt.Fprintf(&b, "+proj=merc +lat_ts=%v +lon_0=%v", p.TrueLat1, p.StandLon)
	case CylindricalEquidistant:
		fmt.Fprintf(&b, "+proj=eqc +lat_ts=0 +lat_0=%v +lon_0=%v", p.LatOrigin, p.StandLon)
	default:
		return ""
	}
	fmt.Fprintf(&b, " +x_0=0 +y_0=0 +a=%.0f +b=%.0f +units=m +no_defs", SphereRadius, SphereRadius)
	return b.String()
}

// GeographicProj4 is longitude/latitude on the WRF sphere.
func GeographicProj4() string {
	return fmt.Sprintf("+proj=longlat +a=%.0f +b=%.0f +no_defs", SphereRadius, SphereRadius)
}

// SR parses the projection into a spatial reference.
func (p Projection) SR() (*proj.SR, error) {
	def := p.Proj4()
	if def == "" {
		return nil, hydroerr.Unsupported("grid.Projection.SR", "grid has no map projection")
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "grid.Projection.SR").Contextf("%s", def).Cause(err).Err()
	}
	return sr, nil
}

// GridMappingName is the CF grid_mapping_name for the CRS variable.
func (p Projection) GridMappingName() string {
	switch p.Family {
	case LambertConformal:
		return "lambert_conformal_conic"
	case PolarStereographic:
		return "polar_stereographic"
	case Mercator:
		return "mercator"
	case CylindricalEquidistant:
		return "latitude_longitude"
	default:
		return "crs"
	}
}

// CFAttributes returns the family-specific CF attributes of the CRS variable.
func (p Projection) CFAttributes() map[string]any {
	attrs := map[string]any{
		"grid_mapping_name":           p.GridMappingName(),
		"transform_name":              p.GridMappingName(),
		"longitude_of_prime_meridian": []float64{0},
		"long_name":                   "CRS definition",
	}
	projected := map[string]any{
		"_CoordinateAxes":          "y x",
		"_CoordinateTransformType": "Projection",
		"false_easting":            []float64{0},
		"false_northing":           []float64{0},
		"earth_radius":             []float64{SphereRadius},
		"semi_major_axis":          []float64{SphereRadius},
		"inverse_flattening":       []float64{0},
	}

	switch p.Family {
	case LambertConformal:
		lat2 := p.TrueLat2
		if !p.HasTrueLat2 {
			lat2 = p.LatOrigin
		}
		for k, v := range projected {
			attrs[k] = v
		}
		attrs["standard_parallel"] = []float64{p.TrueLat1, lat2}
		attrs["longitude_of_central_meridian"] = []float64{p.StandLon}
		attrs["latitude_of_projection_origin"] = []float64{p.LatOrigin}
	case PolarStereographic:
		for k, v := range projected {
			attrs[k] = v
		}
		attrs["longitude_of_projection_origin"] = []float64{p.StandLon}
		attrs["latitude_of_projection_origin"] = []float64{p.PoleLat}
		attrs["scale_factor_at_projection_origin"] = []float64{p.ScaleFactor}
	case Mercator:
		for k, v := range projected {
			attrs[k] = v
		}
		attrs["longitude_of_projection_origin"] = []float64{p.StandLon}
		attrs["latitude_of_projection_origin"] = []float64{p.LatOrigin}
		attrs["standard_parallel"] = []float64{p.TrueLat1}
	}
	return attrs
}

package grid

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

func TestNewProjection_Families(t *testing.T) {
	tests := []struct {
		name   string
		params ProjectionParams
		proj4  string
	}{
		{
			name:   "lambert two parallels",
			params: ProjectionParams{MapProj: 1, TrueLat1: 30, TrueLat2: 60, HasTrueLat2: true, LatOrigin: 40, StandLon: -97},
			proj4:  "+proj=lcc +lat_1=30 +lat_2=60 +lat_0=40 +lon_0=-97",
		},
		{
			name:   "lambert one parallel",
			params: ProjectionParams{MapProj: 1, TrueLat1: 45, LatOrigin: 45, StandLon: 10},
			proj4:  "+proj=lcc +lat_1=45 +lat_0=45 +lon_0=10 +k_0=1",
		},
		{
			name:   "polar stereographic",
			params: ProjectionParams{MapProj: 2, TrueLat1: 90, StandLon: -150, PoleLat: 90},
			proj4:  "+proj=stere +lat_0=90 +lon_0=-150 +k_0=1",
		},
		{
			name:   "mercator",
			params: ProjectionParams{MapProj: 3, TrueLat1: 20, StandLon: 100, LatOrigin: 5},
			proj4:  "+proj=merc +lat_ts=20 +lon_0=100",
		},
		{
			name:   "cylindrical equidistant",
			params: ProjectionParams{MapProj: 6, LatOrigin: 0, StandLon: 0, PoleLat: 90, PoleLon: 0},
			proj4:  "+proj=eqc +lat_ts=0 +lat_0=0 +lon_0=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProjection(tt.params)
			if err != nil {
				t.Fatalf("NewProjection() = %v", err)
			}
			got := p.Proj4()
			if !strings.HasPrefix(got, tt.proj4) {
				t.Errorf("Proj4() = %q, want prefix %q", got, tt.proj4)
			}
			if !strings.HasSuffix(got, "+a=6370000 +b=6370000 +units=m +no_defs") {
				t.Errorf("Proj4() missing WRF sphere: %q", got)
			}
		})
	}
}

func TestNewProjection_PolarScaleFactor(t *testing.T) {
	p, err := NewProjection(ProjectionParams{MapProj: 2, TrueLat1: 60, StandLon: -45, PoleLat: 90})
	if err != nil {
		t.Fatal(err)
	}
	want := (1 + math.Sin(60*math.Pi/180)) / 2
	if math.Abs(p.ScaleFactor-want) > 1e-12 {
		t.Errorf("ScaleFactor = %v, want %v", p.ScaleFactor, want)
	}

	south, _ := NewProjection(ProjectionParams{MapProj: 2, TrueLat1: -60, PoleLat: -90})
	if south.ScaleFactor != p.ScaleFactor {
		t.Errorf("southern scale factor %v differs from northern %v", south.ScaleFactor, p.ScaleFactor)
	}
}

func TestNewProjection_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params ProjectionParams
	}{
		{"rotated pole latitude", ProjectionParams{MapProj: 6, PoleLat: 40, PoleLon: 0}},
		{"rotated pole longitude", ProjectionParams{MapProj: 6, PoleLat: 90, PoleLon: 180}},
		{"unknown code", ProjectionParams{MapProj: 5}},
		{"zero code", ProjectionParams{MapProj: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProjection(tt.params)
			if !errors.Is(err, hydroerr.ErrUnsupportedInput) {
				t.Errorf("NewProjection() = %v, want unsupported input", err)
			}
		})
	}
}

func TestProjection_SRWithoutFamily(t *testing.T) {
	if _, err := (Projection{}).SR(); !errors.Is(err, hydroerr.ErrUnsupportedInput) {
		t.Errorf("SR() = %v", err)
	}
}

func TestCFAttributes(t *testing.T) {
	p, _ := NewProjection(ProjectionParams{MapProj: 1, TrueLat1: 30, TrueLat2: 60, HasTrueLat2: true, LatOrigin: 40, StandLon: -97})
	attrs := p.CFAttributes()

	if attrs["grid_mapping_name"] != "lambert_conformal_conic" {
		t.Errorf("grid_mapping_name = %v", attrs["grid_mapping_name"])
	}
	sp, ok := attrs["standard_parallel"].([]float64)
	if !ok || len(sp) != 2 || sp[0] != 30 || sp[1] != 60 {
		t.Errorf("standard_parallel = %v", attrs["standard_parallel"])
	}
	if r := attrs["earth_radius"].([]float64); r[0] != SphereRadius {
		t.Errorf("earth_radius = %v", r)
	}

	eqc, _ := NewProjection(ProjectionParams{MapProj: 6, PoleLat: 90})
	if _, ok := eqc.CFAttributes()["earth_radius"]; ok {
		t.Error("latitude_longitude mapping should carry no projection parameters")
	}
}

func TestConverter_OriginRoundTrip(t *testing.T) {
	p, err := NewProjection(ProjectionParams{MapProj: 1, TrueLat1: 30, TrueLat2: 60, HasTrueLat2: true, LatOrigin: 40, StandLon: -97})
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewConverter(p)
	if err != nil {
		t.Fatalf("NewConverter() = %v", err)
	}

	x, y, err := c.FromLatLon(40, -97)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x) > 1e-3 || math.Abs(y) > 1e-3 {
		t.Errorf("projection origin maps to (%v, %v), want (0, 0)", x, y)
	}

	lat, lon, err := c.ToLatLon(250000, -120000)
	if err != nil {
		t.Fatal(err)
	}
	bx, by, err := c.FromLatLon(lat, lon)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(bx-250000) > 1e-3 || math.Abs(by+120000) > 1e-3 {
		t.Errorf("round trip = (%v, %v)", bx, by)
	}
	if lon <= -97 || lat >= 40 {
		t.Errorf("south-east offset landed at lat=%v lon=%v", lat, lon)
	}
}

package gage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/terrain"
)

const noData = -9999

// identity treats latitude as y and longitude as x.
type identity struct{}

func (identity) FromLatLon(lat, lon float64) (float64, float64, error) { return lon, lat, nil }

// valley is a 5x5 grid of 10 m cells draining to column 2, which runs
// south off the grid. Rows 1-4 of column 2 are channel.
func valley() Inputs {
	g := grid.New(grid.Projection{}, 0, 50, 10, -10, 5, 5)
	in := Inputs{
		Streams: raster.New(g, noData),
		Fdir:    raster.New(g, noData),
		Facc:    raster.New(g, noData),
		Channel: raster.New(g, noData),
	}
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			switch {
			case c < 2:
				in.Fdir.Set(r, c, terrain.East)
				in.Facc.Set(r, c, float64(c+1))
			case c > 2:
				in.Fdir.Set(r, c, terrain.West)
				in.Facc.Set(r, c, float64(5-c))
			default:
				in.Fdir.Set(r, c, terrain.South)
				in.Facc.Set(r, c, float64(5*(r+1)))
			}
		}
		if r > 0 {
			in.Streams.Set(r, 2, 1)
			in.Channel.Set(r, 2, 0)
		}
	}
	return in
}

func gageConfig() config.Gages {
	cfg := config.DefaultConfig().Gages
	cfg.SnapCells = 2
	return cfg
}

func TestDecodeCSV(t *testing.T) {
	in := "FID, LAT, LON, NAME\n1001, 35.5, -105.25, upper\nUSGS-X,36,-104,lower\n"
	points, err := DecodeCSV(strings.NewReader(in), config.DefaultConfig().Gages)
	require.NoError(t, err)

	assert.Equal(t, []Point{
		{ID: "1001", Lat: 35.5, Lon: -105.25},
		{ID: "USGS-X", Lat: 36, Lon: -104},
	}, points)
}

func TestDecodeCSV_Errors(t *testing.T) {
	cols := config.DefaultConfig().Gages
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "FID,LAT\n1,2\n"},
		{"bad latitude", "FID,LAT,LON\n1,north,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.in), cols)
			assert.Error(t, err)
		})
	}
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gages.csv")
	require.NoError(t, os.WriteFile(path, []byte("fid,lat,lon\n7,1,2\n"), 0o644))

	points, err := ReadCSV(path, config.DefaultConfig().Gages)
	require.NoError(t, err)
	assert.Equal(t, []Point{{ID: "7", Lat: 1, Lon: 2}}, points)

	_, err = ReadCSV(filepath.Join(dir, "missing.csv"), config.DefaultConfig().Gages)
	assert.True(t, errors.Is(err, hydroerr.ErrIO))
}

func TestLocate(t *testing.T) {
	in := valley()
	points := []Point{
		{ID: "1001", Lat: 35, Lon: 5},   // cell (1,0)
		{ID: "USGS-X", Lat: 5, Lon: 25}, // cell (4,2)
		{ID: "far", Lat: 500, Lon: 5},
	}
	rec := logging.NewRecorder()

	res, err := Locate(points, identity{}, in, gageConfig(), rec)
	require.NoError(t, err)
	require.Len(t, res.Points, 3)

	a, b, far := res.Points[0], res.Points[1], res.Points[2]
	assert.True(t, a.Placed)
	assert.Equal(t, [2]int{1, 2}, [2]int{a.Row, a.Col}, "snapped onto the channel")
	assert.Equal(t, [2]int{1, 2}, a.Outlet)
	assert.Equal(t, [2]int{4, 2}, [2]int{b.Row, b.Col})
	assert.False(t, far.Placed)
	assert.Equal(t, 1, rec.Count(logging.WarnLevel, "forecast point outside the routing grid"))

	assert.Equal(t, 1001.0, res.Frxst.At(1, 2))
	assert.Equal(t, 2.0, res.Frxst.At(4, 2), "non-numeric ids use the point number")
	assert.Equal(t, float64(noData), res.Frxst.At(1, 0))

	for c := 0; c < 5; c++ {
		assert.Equal(t, 1.0, res.BasinMask.At(0, c))
		assert.Equal(t, 1.0, res.BasinMask.At(1, c))
		for r := 2; r < 5; r++ {
			assert.Equal(t, 2.0, res.BasinMask.At(r, c))
		}
	}
	assert.Same(t, in.Channel, res.Channel, "channels are not masked unless asked")
}

func TestLocate_MaskChannels(t *testing.T) {
	in := valley()
	cfg := gageConfig()
	cfg.MaskChannels = true

	res, err := Locate([]Point{{ID: "1", Lat: 35, Lon: 5}}, identity{}, in, cfg, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Channel.At(1, 2))
	assert.Equal(t, -1.0, res.Channel.At(2, 2))
	assert.Equal(t, float64(noData), res.Channel.At(2, 0))
	assert.Equal(t, 0.0, in.Channel.At(2, 2), "input untouched")
}

func TestMaskChannels(t *testing.T) {
	g := grid.New(grid.Projection{}, 0, 10, 10, -10, 1, 3)
	channel := &raster.Raster{Geom: g, Data: []float64{0, 0, noData}, NoData: noData}
	mask := &raster.Raster{Geom: g, Data: []float64{1, noData, noData}, NoData: noData}

	assert.Equal(t, []float64{0, -1, noData}, MaskChannels(channel, mask).Data)
}

// twoArcs has arc 1 starting at the center of cell (1,2) and arc 2 at the
// center of cell (3,2) on the valley grid.
func twoArcs() *network.Network {
	return &network.Network{
		Arcs: []network.Arc{
			{ID: 1, From: 1, To: 2},
			{ID: 2, From: 2, To: 3},
		},
		Nodes: []network.Node{
			{ID: 1, X: 25, Y: 35},
			{ID: 2, X: 25, Y: 15},
			{ID: 3, X: 25, Y: -5},
		},
	}
}

func TestAssociate(t *testing.T) {
	g := valley().Facc.Geom
	links := raster.New(g, noData)
	links.Set(1, 2, 1)
	links.Set(2, 2, 1)

	points := []Point{
		{ID: "1001", Placed: true, Row: 1, Col: 2},
		{ID: "2002", Placed: true, Row: 3, Col: 0}, // off LINKID, nearest from-node is arc 2
		{ID: "3003", Placed: true, Row: 2, Col: 2}, // arc 1 already gaged
		{ID: "4004", Placed: false},
	}
	rec := logging.NewRecorder()

	got := Associate(points, links, twoArcs(), rec)
	assert.Equal(t, map[int]string{1: "1001", 2: "2002"}, got)
	assert.Equal(t, 1, rec.Count(logging.WarnLevel, "arc already has a gage"))
}

func TestArcIndex_Nearest(t *testing.T) {
	net := &network.Network{
		Arcs: []network.Arc{
			{ID: 1, From: 1, To: 9},
			{ID: 2, From: 2, To: 9},
		},
		Nodes: []network.Node{
			{ID: 1, X: 9, Y: 0},
			{ID: 2, X: 7, Y: 7},
			{ID: 9, X: 100, Y: 100},
		},
	}
	idx := NewArcIndex(net)

	// The first box (half-width 8) only holds node 2, but node 1 is closer.
	arc, ok := idx.Nearest(geom.Point{}, 8)
	require.True(t, ok)
	assert.Equal(t, 1, arc)

	arc, ok = idx.Nearest(geom.Point{X: 5000, Y: 5000}, 1)
	require.True(t, ok)
	assert.Equal(t, 2, arc)

	_, ok = NewArcIndex(&network.Network{}).Nearest(geom.Point{}, 1)
	assert.False(t, ok)
}

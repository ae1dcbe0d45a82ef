package ncio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/wrfhydro-prep/pkg/basin"
	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/routing"
)

const noData = -9999

// ncFile pairs an opened file with its record count. cdf reports the
// record dimension as zero on read, so reads need explicit bounds.
type ncFile struct {
	*cdf.File
	records int
}

func open(t *testing.T, path string) ncFile {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	info, err := f.Stat()
	require.NoError(t, err)
	nc, err := cdf.Open(f)
	require.NoError(t, err)
	return ncFile{File: nc, records: int(nc.Header.NumRecs(info.Size()))}
}

// bounds returns the full extent of a variable with the record
// dimension resolved.
func (nc ncFile) bounds(name string) (begin, end []int, n int) {
	end = append([]int(nil), nc.Header.Lengths(name)...)
	if nc.Header.IsRecordVariable(name) {
		end[0] = nc.records
	}
	begin = make([]int, len(end))
	n = 1
	for _, l := range end {
		n *= l
	}
	return begin, end, n
}

func readInt32(t *testing.T, nc ncFile, name string) []int32 {
	t.Helper()
	begin, end, n := nc.bounds(name)
	buf := make([]int32, n)
	_, err := nc.Reader(name, begin, end).Read(buf)
	require.NoError(t, err, name)
	return buf
}

func readFloat32(t *testing.T, nc ncFile, name string) []float32 {
	t.Helper()
	begin, end, n := nc.bounds(name)
	buf := make([]float32, n)
	_, err := nc.Reader(name, begin, end).Read(buf)
	require.NoError(t, err, name)
	return buf
}

func readText(t *testing.T, nc ncFile, name string) []byte {
	t.Helper()
	begin, end, n := nc.bounds(name)
	buf := make([]byte, n)
	_, err := nc.Reader(name, begin, end).Read(buf)
	require.NoError(t, err, name)
	return buf
}

func routeTable() *routing.Table {
	return &routing.Table{
		GageWidth: 15,
		Links: []routing.Link{
			{Link: 1, From: 0, To: 2, Lon: -105.1, Lat: 40.1, Alt: 105.7, Order: 1, MusK: 3600, MusX: 0.2,
				Length: 200, N: 0.035, So: 0.025, ChSlp: 0.05, BtmWdth: 5, X: 10, Y: 20,
				Gage: routing.Gage("1001", 15), Waterbody: routing.NoWaterbody},
			{Link: 2, From: 1, To: 0, Lon: -105.2, Lat: 40.2, Alt: 100.2, Order: 2, MusK: 3600, MusX: 0.2,
				Length: 150, N: 0.035, So: 0.005, ChSlp: 0.05, BtmWdth: 5, X: 30, Y: 40,
				Gage: routing.Gage("", 15), Waterbody: 7},
		},
	}
}

func TestWriteRouteLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), RouteLinkFile)
	require.NoError(t, WriteRouteLink(path, routeTable()))

	nc := open(t, path)
	assert.Equal(t, 2, nc.records)
	assert.True(t, nc.Header.IsRecordVariable("link"))
	assert.Equal(t, []string{RecordDim, IDLengthDim}, nc.Header.Dimensions("gages"))
	assert.Equal(t, 15, nc.Header.Lengths("gages")[1])
	assert.Equal(t, "           1001               ", string(readText(t, nc, "gages")))

	assert.Equal(t, []int32{1, 2}, readInt32(t, nc, "link"))
	assert.Equal(t, []int32{0, 1}, readInt32(t, nc, "from"))
	assert.Equal(t, []int32{2, 0}, readInt32(t, nc, "to"))
	assert.Equal(t, []int32{routing.NoWaterbody, 7}, readInt32(t, nc, "NHDWaterbodyComID"))
	assert.Equal(t, []float32{0.025, 0.005}, readFloat32(t, nc, "So"))
	assert.Equal(t, []float32{200, 150}, readFloat32(t, nc, "Length"))
	assert.Equal(t, "meters / meters", nc.Header.GetAttribute("So", "units"))

	kchan := make([]int16, 2)
	_, err := nc.Reader("Kchan", []int{0}, []int{nc.records}).Read(kchan)
	require.NoError(t, err)
	assert.Equal(t, []int16{0, 0}, kchan)
}

func TestWriteRouteLink_Columns(t *testing.T) {
	want := []string{
		"link", "from", "to", "lon", "lat", "alt", "order",
		"Qi", "MusK", "MusX", "Length", "n", "So", "ChSlp", "BtmWdth",
		"time", "x", "y", "Kchan", "gages", "NHDWaterbodyComID",
	}
	var got []string
	for _, c := range RouteLinkTable(routeTable()).Columns {
		got = append(got, c.Name)
	}
	assert.Equal(t, want, got)
}

func TestWriteTable_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		table Table
	}{
		{"short column", Table{Records: 2, Columns: []Column{{Name: "a", Kind: Int32, Values: []float64{1}}}}},
		{"char without dimension", Table{Records: 1, Columns: []Column{{Name: "s", Kind: Char, Text: []string{"x"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.nc")
			err := WriteTable(path, tt.table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, hydroerr.ErrIO))
			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "file should not be created")
		})
	}
}

func TestWriteTable_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), LakeParmFile)
	require.NoError(t, WriteLakeParm(path, &basin.LakeSet{}))

	nc := open(t, path)
	assert.Equal(t, 0, nc.records)
	assert.True(t, nc.Header.IsRecordVariable("lake_id"))
}

func TestWriteLakeParm(t *testing.T) {
	set := &basin.LakeSet{Lakes: []basin.Lake{
		{ID: 30, AreaKm2: 1.5, MinElev: 90, MaxElev: 99, OrificeE: 93, WeirE: 98.1, WeirC: 0.4, WeirL: 10, OrificeC: 0.1, OrificeA: 1, IFD: 0.9},
		{ID: 10, AreaKm2: 0.25, MinElev: 50, MaxElev: 52, OrificeE: 50.5, WeirE: 51.8, WeirC: 0.4, WeirL: 10, OrificeC: 0.1, OrificeA: 1, IFD: 0.9},
		{ID: 20, AreaKm2: 4, MinElev: 10, MaxElev: 12, OrificeE: 10.5, WeirE: 11.8, WeirC: 0.4, WeirL: 10, OrificeC: 0.1, OrificeA: 1, IFD: 0.9},
	}}
	path := filepath.Join(t.TempDir(), LakeParmFile)
	require.NoError(t, WriteLakeParm(path, set))

	nc := open(t, path)
	assert.Equal(t, 3, nc.records)
	assert.Equal(t, []int32{30, 10, 20}, readInt32(t, nc, "lake_id"))
	assert.Equal(t, []int32{1, 2, 0}, readInt32(t, nc, "ascendingIndex"))
	assert.Equal(t, []float32{99, 52, 12}, readFloat32(t, nc, "LkMxE"))
	assert.Equal(t, []float32{0.9, 0.9, 0.9}, readFloat32(t, nc, "ifd"))
}

func coarseGrid() grid.Geometry {
	proj, _ := grid.NewProjection(grid.ProjectionParams{MapProj: 1, TrueLat1: 30, TrueLat2: 60, HasTrueLat2: true, StandLon: -97, LatOrigin: 40})
	return grid.New(proj, 1000, 5000, 1000, -1000, 2, 3)
}

func TestWriteGWBucketsAndBasins(t *testing.T) {
	g := coarseGrid()
	b := &basin.Buckets{
		Rows: []basin.Bucket{
			{Basin: 1, Coeff: 1, Expon: 3, Zmax: 50, Zinit: 10, AreaKm2: 3, ComID: 12},
			{Basin: 2, Coeff: 1, Expon: 3, Zmax: 50, Zinit: 10, AreaKm2: 2, ComID: 40},
		},
		Grid: &raster.Raster{Geom: g, NoData: noData, Data: []float64{1, 1, 2, 1, 2, noData}},
	}
	dir := t.TempDir()
	require.NoError(t, WriteGWBuckets(filepath.Join(dir, GWBucketsFile), b))
	require.NoError(t, WriteGWBasins(filepath.Join(dir, GWBasinsFile), b))

	params := open(t, filepath.Join(dir, GWBucketsFile))
	assert.Equal(t, 2, params.records)
	assert.Equal(t, []int32{1, 2}, readInt32(t, params, "Basin"))
	assert.Equal(t, []int32{12, 40}, readInt32(t, params, "ComID"))
	assert.Equal(t, []float32{3, 2}, readFloat32(t, params, "Area_sqkm"))

	basins := open(t, filepath.Join(dir, GWBasinsFile))
	assert.Equal(t, []string{"y", "x"}, basins.Header.Dimensions("BASIN"))
	assert.Equal(t, []int32{1, 1, 2, 1, 2, noData}, readInt32(t, basins, "BASIN"))
}

func TestWriteFulldom(t *testing.T) {
	g := coarseGrid()
	cells := func(v ...float64) *raster.Raster {
		return &raster.Raster{Geom: g, NoData: noData, Data: v}
	}
	d := Fulldom{
		Topography:    cells(10, 9, 8, 7, 6, 5),
		FlowDirection: cells(1, 1, 4, 1, 1, 128),
		FlowAcc:       cells(1, 2, 4, 1, 2, 6),
		Channel:       cells(noData, 0, 0, noData, 0, 0),
		StreamOrder:   cells(noData, 1, 1, noData, 1, 2),
		LinkID:        cells(noData, 1, 1, noData, 2, 2),
		Factors:       config.DefaultConfig().Terrain,
	}
	path := filepath.Join(t.TempDir(), FulldomFile)
	require.NoError(t, WriteFulldom(path, d))

	nc := open(t, path)
	for _, l := range d.Layers() {
		assert.False(t, nc.Header.IsRecordVariable(l.Name), l.Name)
		assert.Equal(t, []int{2, 3}, nc.Header.Lengths(l.Name), l.Name)
		assert.Equal(t, CRSVar, nc.Header.GetAttribute(l.Name, "grid_mapping"), l.Name)
	}

	fdir := make([]int16, 6)
	_, err := nc.Reader("FLOWDIRECTION", nil, nil).Read(fdir)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 1, 4, 1, 1, 128}, fdir)

	assert.Equal(t, []float32{10, 9, 8, 7, 6, 5}, readFloat32(t, nc, "TOPOGRAPHY"))
	assert.Equal(t, []int32{noData, 1, 1, noData, 2, 2}, readInt32(t, nc, "LINKID"))
	assert.Equal(t, []int32{noData, noData, noData, noData, noData, noData}, readInt32(t, nc, "LAKEGRID"))
	assert.Equal(t, []float32{1000, 1000, 1000, 1000, 1000, 1000}, readFloat32(t, nc, "LKSATFAC"))

	xs := make([]float64, 3)
	_, err = nc.Reader("x", nil, nil).Read(xs)
	require.NoError(t, err)
	assert.Equal(t, []float64{1500, 2500, 3500}, xs)
	ys := make([]float64, 2)
	_, err = nc.Reader("y", nil, nil).Read(ys)
	require.NoError(t, err)
	assert.Equal(t, []float64{4500, 3500}, ys)

	assert.Equal(t, "1000 1000 0 5000 0 -1000", nc.Header.GetAttribute(CRSVar, "GeoTransform"))
	assert.Equal(t, g.Proj.Proj4(), nc.Header.GetAttribute(CRSVar, "spatial_ref"))
	assert.Equal(t, "lambert_conformal_conic", nc.Header.GetAttribute(CRSVar, "grid_mapping_name"))
}

func TestWriteGrid_ShapeMismatch(t *testing.T) {
	g := coarseGrid()
	other := grid.New(g.Proj, 0, 0, 10, -10, 4, 4)
	err := WriteGrid(filepath.Join(t.TempDir(), "x.nc"), g,
		[]Layer{{Name: "A", Kind: Int32, Raster: raster.New(other, noData)}}, nil)
	assert.True(t, errors.Is(err, hydroerr.ErrIO))
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "ab   ", fixed("ab", 5))
	assert.Equal(t, "abcde", fixed("abcdefg", 5))
	assert.Equal(t, "", fixed("", 0))
}

func TestConvert_NaNBecomesFill(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, []int32{noData, 3}, convert(Int32, []float64{nan, 2.6}, noData))
	assert.Equal(t, []float32{noData}, convert(Float32, []float64{nan}, noData))
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func TestDefaultConfig_Constants(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3600.0, cfg.Channel.MusK)
	assert.Equal(t, 0.2, cfg.Channel.MusX)
	assert.Equal(t, 0.035, cfg.Channel.Manning)
	assert.Equal(t, 0.005, cfg.Channel.MinSlope)
	assert.Equal(t, 15, cfg.Channel.GageWidth)
	assert.Equal(t, -9999.0, cfg.Grid.NoData)
	assert.Equal(t, 50.0, cfg.Groundwater.Zmax)
	assert.Equal(t, 0.9, cfg.Lakes.IFD)
	assert.True(t, cfg.Lakes.Gridded)
}

func TestLoad_LayersFileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	geo := touch(t, dir, "geo_em.d01.nc")
	cfgPath := filepath.Join(dir, "prep.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join([]string{
		"inputs:",
		"  geogrid: " + geo,
		"grid:",
		"  regrid_factor: 4",
		"channel:",
		"  min_slope: 0.001",
		"lakes:",
		"  gridded: false",
	}, "\n")), 0o644))

	t.Setenv("WRFHYDRO_TERRAIN_THRESHOLD", "50")

	cfg, err := Load(cfgPath, map[string]any{"output.dir": filepath.Join(dir, "out")})
	require.NoError(t, err)

	assert.Equal(t, geo, cfg.Inputs.Geogrid)
	assert.Equal(t, 4, cfg.Grid.RegridFactor)
	assert.Equal(t, 0.001, cfg.Channel.MinSlope)
	assert.False(t, cfg.Lakes.Gridded)
	assert.Equal(t, 50, cfg.Terrain.Threshold)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Dir)
	// untouched defaults survive the merge
	assert.Equal(t, 3600.0, cfg.Channel.MusK)
	assert.Equal(t, "native", cfg.Terrain.Engine)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hydroerr.ErrIO), "got %v", err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	geo := touch(t, dir, "geo.nc")
	lakes := touch(t, dir, "lakes.gpkg")
	shp := touch(t, dir, "lakes.shp")

	tests := []struct {
		name      string
		overrides map[string]any
		want      string
	}{
		{"missing geogrid", map[string]any{}, "inputs.geogrid: field is required"},
		{"regrid factor", map[string]any{"inputs.geogrid": geo, "grid.regrid_factor": 0}, "grid.regrid_factor"},
		{"method", map[string]any{"inputs.geogrid": geo, "groundwater.method": "magic"}, "groundwater.method"},
		{"polygons need input", map[string]any{"inputs.geogrid": geo, "groundwater.method": "polygons"}, "inputs.basin_polygons"},
		{"mask needs gages", map[string]any{"inputs.geogrid": geo, "groundwater.method": "mask"}, "inputs.forecast_points"},
		{"publish needs archive", map[string]any{"inputs.geogrid": geo, "output.publish.bucket": "decks"}, "output.archive"},
		{"zinit above zmax", map[string]any{"inputs.geogrid": geo, "groundwater.zinit": 60, "groundwater.zmax": 50}, "groundwater.zinit: value 60 is outside range [0, 50]"},
		{"lakes not a shapefile", map[string]any{"inputs.geogrid": geo, "inputs.lakes": lakes}, "inputs.lakes"},
		{"lakes without weir", map[string]any{"inputs.geogrid": geo, "inputs.lakes": shp, "lakes.weir_l": 0}, "lakes.weir_l"},
		{"basin polygons not a shapefile", map[string]any{"inputs.geogrid": geo, "inputs.basin_polygons": lakes}, "inputs.basin_polygons"},
		{"geogrid missing on disk", map[string]any{"inputs.geogrid": geo + ".missing"}, "inputs.geogrid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.overrides)
			require.Error(t, err)
			assert.True(t, errors.Is(err, hydroerr.ErrInvalidConfig), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_GroundwaterDisabledSkipsBucketRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs.Geogrid = touch(t, t.TempDir(), "geo.nc")
	cfg.Groundwater.Zinit = 80

	require.Error(t, cfg.Validate())
	cfg.Groundwater.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestSave_OmitsCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Publish.SecretAccessKey = "hunter2"
	path := filepath.Join(t.TempDir(), "effective.yaml")

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, string(data), "min_slope: 0.005")
}

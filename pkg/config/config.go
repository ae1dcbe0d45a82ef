// Package config holds the immutable run configuration. A Config is built
// once by Load and passed by value to every pipeline component.
package config

// Config represents the complete preprocessing configuration
type Config struct {
	Inputs      Inputs      `mapstructure:"inputs" yaml:"inputs"`
	Grid        Grid        `mapstructure:"grid" yaml:"grid"`
	Terrain     Terrain     `mapstructure:"terrain" yaml:"terrain"`
	Channel     Channel     `mapstructure:"channel" yaml:"channel"`
	Groundwater Groundwater `mapstructure:"groundwater" yaml:"groundwater"`
	Lakes       Lakes       `mapstructure:"lakes" yaml:"lakes"`
	Gages       Gages       `mapstructure:"gages" yaml:"gages"`
	Output      Output      `mapstructure:"output" yaml:"output"`
	Logging     Logging     `mapstructure:"logging" yaml:"logging"`
}

// Inputs names the files a run reads.
type Inputs struct {
	Geogrid        string `mapstructure:"geogrid" yaml:"geogrid" validate:"required"`
	DEM            string `mapstructure:"dem" yaml:"dem"` // empty: HGT_M resampled to the routing grid
	ForecastPoints string `mapstructure:"forecast_points" yaml:"forecast_points"`
	Lakes          string `mapstructure:"lakes" yaml:"lakes"`
	BasinPolygons  string `mapstructure:"basin_polygons" yaml:"basin_polygons"`
}

// Grid controls the routing grid derived from the GEOGRID domain.
type Grid struct {
	RegridFactor int     `mapstructure:"regrid_factor" yaml:"regrid_factor" validate:"gte=1"`
	NoData       float64 `mapstructure:"nodata" yaml:"nodata"`
}

// Terrain selects the terrain-analysis engine and the constant routing grids.
type Terrain struct {
	Engine       string  `mapstructure:"engine" yaml:"engine" validate:"oneof=native whitebox"`
	WhiteboxPath string  `mapstructure:"whitebox_path" yaml:"whitebox_path"`
	WorkDir      string  `mapstructure:"work_dir" yaml:"work_dir"`
	Threshold    int     `mapstructure:"threshold" yaml:"threshold" validate:"gt=0"`
	OvRoughRtFac float64 `mapstructure:"ovroughrtfac" yaml:"ovroughrtfac" validate:"gte=0"`
	RetDeprtFac  float64 `mapstructure:"retdeprtfac" yaml:"retdeprtfac" validate:"gte=0"`
	LkSatFac     float64 `mapstructure:"lksatfac" yaml:"lksatfac" validate:"gte=0"`
}

// Channel carries the per-reach defaults written to Route_Link.
type Channel struct {
	Qi        float64 `mapstructure:"qi" yaml:"qi" validate:"gte=0"`
	MusK      float64 `mapstructure:"musk" yaml:"musk" validate:"gt=0"`
	MusX      float64 `mapstructure:"musx" yaml:"musx" validate:"gte=0,lte=0.5"`
	Manning   float64 `mapstructure:"n" yaml:"n" validate:"gt=0"`
	ChSlp     float64 `mapstructure:"chslp" yaml:"chslp" validate:"gte=0"`
	BtmWdth   float64 `mapstructure:"btmwdth" yaml:"btmwdth" validate:"gte=0"`
	Kchan     float64 `mapstructure:"kchan" yaml:"kchan" validate:"gte=0"`
	MinSlope  float64 `mapstructure:"min_slope" yaml:"min_slope" validate:"gt=0"`
	GageWidth int     `mapstructure:"gage_width" yaml:"gage_width" validate:"gt=0"`
}

// Groundwater basin source methods.
const (
	MethodMask      = "mask"
	MethodSubbasins = "subbasins"
	MethodPolygons  = "polygons"
)

// Groundwater carries the bucket defaults and the basin source.
type Groundwater struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Method  string  `mapstructure:"method" yaml:"method" validate:"oneof=mask subbasins polygons"`
	Coeff   float64 `mapstructure:"coeff" yaml:"coeff" validate:"gte=0"`
	Expon   float64 `mapstructure:"expon" yaml:"expon" validate:"gte=0"`
	Zmax    float64 `mapstructure:"zmax" yaml:"zmax" validate:"gt=0"`
	Zinit   float64 `mapstructure:"zinit" yaml:"zinit" validate:"gte=0"`
}

// Lakes carries the reservoir defaults.
type Lakes struct {
	IDField   string  `mapstructure:"id_field" yaml:"id_field"`
	AreaField string  `mapstructure:"area_field" yaml:"area_field"`
	Gridded   bool    `mapstructure:"gridded" yaml:"gridded"`
	MinDepth  float64 `mapstructure:"min_depth" yaml:"min_depth" validate:"gt=0"`
	WeirC     float64 `mapstructure:"weir_c" yaml:"weir_c" validate:"gte=0"`
	WeirL     float64 `mapstructure:"weir_l" yaml:"weir_l" validate:"gte=0"`
	OrificeC  float64 `mapstructure:"orifice_c" yaml:"orifice_c" validate:"gte=0"`
	OrificeA  float64 `mapstructure:"orifice_a" yaml:"orifice_a" validate:"gte=0"`
	IFD       float64 `mapstructure:"ifd" yaml:"ifd" validate:"gte=0,lte=1"`
	SnapCells float64 `mapstructure:"snap_cells" yaml:"snap_cells" validate:"gte=0"`
}

// Gages describes the forecast-point CSV columns.
type Gages struct {
	IDField      string  `mapstructure:"id_field" yaml:"id_field"`
	LatField     string  `mapstructure:"lat_field" yaml:"lat_field"`
	LonField     string  `mapstructure:"lon_field" yaml:"lon_field"`
	SnapCells    float64 `mapstructure:"snap_cells" yaml:"snap_cells" validate:"gte=0"`
	MaskChannels bool    `mapstructure:"mask_channels" yaml:"mask_channels"`
}

// Output controls where and how the deck is written.
type Output struct {
	Dir         string  `mapstructure:"dir" yaml:"dir" validate:"required"`
	Archive     bool    `mapstructure:"archive" yaml:"archive"`
	Snapshot    bool    `mapstructure:"snapshot" yaml:"snapshot"`
	MetricsFile string  `mapstructure:"metrics_file" yaml:"metrics_file"`
	Publish     Publish `mapstructure:"publish" yaml:"publish"`
}

// Publish uploads the archived deck to an S3-compatible bucket.
type Publish struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"-"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"-"`
}

// Logging selects level and line format.
type Logging struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the standard WRF-Hydro preprocessing defaults.
func DefaultConfig() Config {
	return Config{
		Grid: Grid{
			RegridFactor: 10,
			NoData:       -9999,
		},
		Terrain: Terrain{
			Engine:       "native",
			WhiteboxPath: "whitebox_tools",
			Threshold:    200,
			OvRoughRtFac: 1.0,
			RetDeprtFac:  1.0,
			LkSatFac:     1000.0,
		},
		Channel: Channel{
			Qi:        0,
			MusK:      3600,
			MusX:      0.2,
			Manning:   0.035,
			ChSlp:     0.05,
			BtmWdth:   5,
			Kchan:     0,
			MinSlope:  0.005,
			GageWidth: 15,
		},
		Groundwater: Groundwater{
			Enabled: true,
			Method:  MethodSubbasins,
			Coeff:   1.0,
			Expon:   3.0,
			Zmax:    50.0,
			Zinit:   10.0,
		},
		Lakes: Lakes{
			AreaField: "AREASQKM",
			Gridded:   true,
			MinDepth:  1.0,
			WeirC:     0.4,
			WeirL:     10.0,
			OrificeC:  0.1,
			OrificeA:  1.0,
			IFD:       0.90,
			SnapCells: 3,
		},
		Gages: Gages{
			IDField:   "FID",
			LatField:  "LAT",
			LonField:  "LON",
			SnapCells: 3,
		},
		Output: Output{
			Dir:      "./wrfhydro_out",
			Snapshot: true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/validation"
)

// EnvPrefix is prepended to environment overrides, e.g. WRFHYDRO_GRID_REGRID_FACTOR.
const EnvPrefix = "WRFHYDRO"

// Load layers defaults, the optional config file, WRFHYDRO_* environment
// variables and explicit overrides (usually CLI flags), in that order, then
// validates the result.
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return Config{}, hydroerr.Config("config.Load", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, hydroerr.Config("config.Load", err)
	}
	// yaml:"-" keeps credentials out of dumps, so they have no default key
	// for AutomaticEnv to find.
	v.SetDefault("output.publish.access_key_id", "")
	v.SetDefault("output.publish.secret_access_key", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return Config{}, hydroerr.IO("config.Load", path, err)
			}
			return Config{}, hydroerr.Config("config.Load", fmt.Errorf("%s: %w", path, err))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, hydroerr.Config("config.Load", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, hydroerr.Config("config.Load", err)
	}
	return cfg, nil
}

// polygonFormats lists the extensions geomops.ReadPolygons can decode.
var polygonFormats = []string{".shp"}

// Validate checks struct tags first, then the rules that span sections.
func (c Config) Validate() error {
	if err := validation.Struct(&c); err != nil {
		return err
	}

	return validation.NewConfigValidator("config").
		FileExists("inputs.geogrid", c.Inputs.Geogrid).
		FileExists("inputs.dem", c.Inputs.DEM).
		FileExists("inputs.forecast_points", c.Inputs.ForecastPoints).
		FileExists("inputs.lakes", c.Inputs.Lakes).
		FileExists("inputs.basin_polygons", c.Inputs.BasinPolygons).
		When(c.Inputs.Lakes != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("inputs.lakes", strings.ToLower(filepath.Ext(c.Inputs.Lakes)), polygonFormats).
				PositiveFloat("lakes.weir_l", c.Lakes.WeirL)
		}).
		When(c.Inputs.BasinPolygons != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("inputs.basin_polygons", strings.ToLower(filepath.Ext(c.Inputs.BasinPolygons)), polygonFormats)
		}).
		When(c.Groundwater.Enabled, func(cv *validation.ConfigValidator) {
			cv.RangeFloat("groundwater.zinit", c.Groundwater.Zinit, 0, c.Groundwater.Zmax)
		}).
		When(c.Groundwater.Enabled && c.Groundwater.Method == MethodPolygons, func(cv *validation.ConfigValidator) {
			cv.Required("inputs.basin_polygons", c.Inputs.BasinPolygons)
		}).
		When(c.Groundwater.Enabled && c.Groundwater.Method == MethodMask, func(cv *validation.ConfigValidator) {
			cv.Required("inputs.forecast_points", c.Inputs.ForecastPoints)
		}).
		When(c.Terrain.Engine == "whitebox", func(cv *validation.ConfigValidator) {
			cv.Required("terrain.whitebox_path", c.Terrain.WhiteboxPath)
		}).
		When(c.Output.Publish.Bucket != "", func(cv *validation.ConfigValidator) {
			cv.Custom("output.publish", func() error {
				if !c.Output.Archive {
					return errors.New("publishing requires output.archive")
				}
				return nil
			})
		}).
		Validate()
}

// Save writes the effective configuration as YAML. Credentials are omitted.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return hydroerr.IO("config.Save", path, err)
	}
	return nil
}

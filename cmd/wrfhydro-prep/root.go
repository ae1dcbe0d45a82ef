package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath   string
	logLevel     string
	outputDir    string
	geogridPath  string
	regridFactor int
)

var rootCmd = &cobra.Command{
	Use:   "wrfhydro-prep",
	Short: "Build WRF-Hydro routing decks from a GEOGRID domain",
	Long: `wrfhydro-prep derives the high-resolution routing grids, the channel
network and the reservoir and groundwater parameter tables that WRF-Hydro
reads, starting from a WPS GEOGRID file and an optional DEM.

Settings come from defaults, an optional YAML file (--config), WRFHYDRO_*
environment variables and command-line flags, in increasing priority.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("wrfhydro-prep version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory for the routing deck")
	rootCmd.PersistentFlags().StringVarP(&geogridPath, "geogrid", "g", "", "WPS GEOGRID file (geo_em.d0N.nc)")
	rootCmd.PersistentFlags().IntVar(&regridFactor, "regrid-factor", 0, "Routing cells per GEOGRID cell along each axis")
}

// loadConfig reads the configuration with the flags the user set applied
// on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		overrides["logging.level"] = logLevel
	}
	if flags.Changed("output") {
		overrides["output.dir"] = outputDir
	}
	if flags.Changed("geogrid") {
		overrides["inputs.geogrid"] = geogridPath
	}
	if flags.Changed("regrid-factor") {
		overrides["grid.regrid_factor"] = regridFactor
	}
	return config.Load(configPath, overrides)
}

func newLogger(cfg config.Logging) logging.Logger {
	return logging.New(os.Stderr, logging.ParseLevel(cfg.Level), logging.Format(cfg.Format))
}

package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/geoqc/pkg/config"
	"github.com/nsxbet/geoqc/pkg/fileutil"
	"github.com/nsxbet/geoqc/pkg/types"
)

var rasterCmd = &cobra.Command{
	Use:   "raster [flags] <input-dir> <output-dir>",
	Short: "Check raster images against quality rules",
	Long: `Check every GeoTIFF of a directory against the selected control
and write the report to the output directory.

The conform and deviation values set the tolerance of the control: pixel
sizes, bit depths and band counts must lie within conform ± deviation, while
rad_balance and nodata shares (0..1) must not exceed conform + deviation.

--conform and --deviation need a single --control. pixel_size has no default
tolerance, so the default control aall needs a --config file that sets one:

  tolerances:
    pixel_size: {conform: 0.25, deviation: 0.01}`,
	Args: cobra.ExactArgs(2),
	RunE: runRaster,
}

func init() {
	rootCmd.AddCommand(rasterCmd)

	// Flags for raster command
	flags := rasterCmd.Flags()
	flags.StringP("control", "c", string(types.RuleAll), "rule to apply (pixel_size, dig_level, bands_len, rad_balance, nodata, aall)")
	flags.Float64("conform", 0, "conform value of the control")
	flags.Float64("deviation", 0, "allowed deviation from the conform value")
	flags.BoolP("recursive", "r", false, "search the input directory recursively")
	flags.Bool("non-recursive", false, "only search the top of the input directory (default)")
	flags.Bool("twf", false, "read the pixel size from the world file when present")
	flags.Int("max-bands", 0, "check the bit depth of the first bands only, 0 for all")
	flags.Float64("rad-low", 0, "upper bound of the low extreme bin of rad_balance")
	flags.Float64("rad-high", 0, "lower bound of the high extreme bin of rad_balance")
	flags.String("pattern", "*.tif,*.tiff", "raster file name patterns, comma separated")
	rasterCmd.MarkFlagsMutuallyExclusive("recursive", "non-recursive")

	// Bind flags to viper
	for _, name := range []string{
		"control", "conform", "deviation", "recursive", "non-recursive",
		"twf", "max-bands", "rad-low", "rad-high", "pattern",
	} {
		_ = viper.BindPFlag("raster."+name, flags.Lookup(name))
	}
}

func runRaster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRasterFlags(cfg, args); err != nil {
		return fatal(err)
	}

	r, err := prepare(cmd, cfg, types.DomainRaster)
	if err != nil {
		return err
	}
	r.log.Debug("starting raster review", "input", cfg.Raster.Input, "controls", cfg.Controls)

	ctx := cmd.Context()
	result, err := r.reviewer().ReviewRasters(ctx, r.options()...)
	return r.finish(ctx, result, err)
}

func applyRasterFlags(cfg *config.Config, args []string) error {
	cfg.Raster.Input = args[0]
	cfg.Report.Dir = args[1]

	if viper.IsSet("raster.control") {
		rule, err := types.ParseRule(viper.GetString("raster.control"))
		if err != nil {
			return errors.Wrap(config.ErrInvalidConfig, err.Error())
		}
		cfg.Controls = []types.Rule{rule}
	}
	control := types.RuleAll
	if len(cfg.Controls) == 1 {
		control = cfg.Controls[0]
	}

	var conform, deviation *float64
	if viper.IsSet("raster.conform") {
		v := viper.GetFloat64("raster.conform")
		conform = &v
	}
	if viper.IsSet("raster.deviation") {
		v := viper.GetFloat64("raster.deviation")
		deviation = &v
	}
	if conform != nil || deviation != nil {
		if control == types.RuleAll {
			return errors.Wrap(config.ErrInvalidConfig, "--conform and --deviation need a single --control; set per-rule tolerances in --config")
		}
		cfg.SetTolerance(control, types.DomainRaster, conform, deviation)
	}

	if viper.IsSet("raster.recursive") {
		cfg.Raster.Recursive = viper.GetBool("raster.recursive")
	}
	if viper.GetBool("raster.non-recursive") {
		cfg.Raster.Recursive = false
	}
	if viper.IsSet("raster.twf") {
		cfg.Raster.PreferWorldFile = viper.GetBool("raster.twf")
	}
	if viper.IsSet("raster.max-bands") {
		cfg.Raster.MaxBands = viper.GetInt("raster.max-bands")
	}
	if viper.IsSet("raster.rad-low") {
		v := viper.GetFloat64("raster.rad-low")
		cfg.Raster.RadLow = &v
	}
	if viper.IsSet("raster.rad-high") {
		v := viper.GetFloat64("raster.rad-high")
		cfg.Raster.RadHigh = &v
	}
	if viper.IsSet("raster.pattern") {
		cfg.Raster.Patterns = fileutil.SplitPatterns(viper.GetString("raster.pattern"))
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/geoqc/pkg/config"
	"github.com/nsxbet/geoqc/pkg/logger"
)

// Exit codes of the geoqc command.
const (
	ExitOK      = 0
	ExitOffense = 1
	ExitFatal   = 2
)

// errOffenses is returned when the report holds fail or error outcomes and
// --fail-on-offense is set.
var errOffenses = errors.New("quality control found offenses")

// exitError carries the process exit code of a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func fatal(err error) error {
	return &exitError{code: ExitFatal, err: err}
}

// ExitCode maps the error returned by Execute to a process exit code.
// Configuration errors are fatal; any other failure counts as an offense.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		return ExitFatal
	}
	return ExitOffense
}

// IsOffense reports whether err only signals offending outcomes.
func IsOffense(err error) bool {
	return errors.Is(err, errOffenses)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geoqc",
	Short: "Quality control of geospatial deliveries",
	Long: `geoqc checks raster imagery and PostGIS vector data against
quality rules and writes a report of every offending item.

Raster rules: pixel_size, dig_level, bands_len, rad_balance, nodata.
Vector rules: invalid, duplicate, multipart, intersect, null.
The control "aall" applies every rule of the domain.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command. SIGINT and SIGTERM cancel ctx so
// that a run stops between items without writing a report.
func ExecuteContext(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML or JSON file with tolerances and defaults")
	flags.String("format", "text,json", "report formats, comma separated (text, json, yaml, csv)")
	flags.String("report-name", "report", "report file name without extension")
	flags.String("lang", "en", "report language (en, es)")
	flags.Int("concurrency", 1, "number of items evaluated at once")
	flags.Int("max-offenders", 0, "offending features listed per outcome in the text report, 0 for all")
	flags.String("metrics-file", "", "write Prometheus metrics of the run to this file")
	flags.String("log-format", "text", "log format (text, json, tint)")
	flags.Bool("verbose", false, "enable verbose output")
	flags.Bool("debug", false, "enable debug output")
	flags.Bool("fail-on-offense", true, "exit with code 1 when any rule fails or cannot be evaluated")

	// Bind flags to viper
	for _, name := range []string{
		"config", "format", "report-name", "lang", "concurrency", "max-offenders",
		"metrics-file", "log-format", "verbose", "debug", "fail-on-offense",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("geoqc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// newLogger installs the logger selected by --log-format, --verbose and
// --debug as the slog default.
func newLogger(w io.Writer) (*logger.Logger, error) {
	format, err := logger.ParseFormat(viper.GetString("log-format"))
	if err != nil {
		return nil, fatal(errors.Wrap(config.ErrInvalidConfig, err.Error()))
	}
	l := logger.NewWithOptions(logger.Options{
		Format: format,
		Level:  logger.LevelFor(viper.GetBool("verbose"), viper.GetBool("debug")),
		Writer: w,
	})
	return l, nil
}

// loadConfig builds the run configuration from the --config file, when
// given, and the common flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig(uuid.NewString())
	if path := viper.GetString("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fatal(err)
		}
		cfg = loaded
		if cfg.ID == "" {
			cfg.ID = uuid.NewString()
		}
	}

	if viper.IsSet("format") {
		cfg.Report.Formats = strings.Split(viper.GetString("format"), ",")
	}
	if viper.IsSet("report-name") {
		cfg.Report.Name = viper.GetString("report-name")
	}
	if viper.IsSet("lang") {
		cfg.Report.Language = viper.GetString("lang")
	}
	if viper.IsSet("concurrency") {
		cfg.Concurrency = viper.GetInt("concurrency")
	}
	if viper.IsSet("max-offenders") {
		cfg.Report.MaxOffenders = viper.GetInt("max-offenders")
	}
	if viper.IsSet("metrics-file") {
		cfg.MetricsFile = viper.GetString("metrics-file")
	}
	if viper.IsSet("fail-on-offense") {
		cfg.FailOnOffense = viper.GetBool("fail-on-offense")
	}
	return cfg, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

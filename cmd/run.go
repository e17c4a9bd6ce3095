package cmd

import (
	"context"
	"io"
	"io/fs"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nsxbet/geoqc/pkg/admissibility"
	"github.com/nsxbet/geoqc/pkg/config"
	"github.com/nsxbet/geoqc/pkg/fileutil"
	"github.com/nsxbet/geoqc/pkg/i18n"
	"github.com/nsxbet/geoqc/pkg/logger"
	"github.com/nsxbet/geoqc/pkg/metrics"
	"github.com/nsxbet/geoqc/pkg/report"
	"github.com/nsxbet/geoqc/pkg/reviewer"
	"github.com/nsxbet/geoqc/pkg/types"
)

// run is the state shared by the raster and vector commands.
type run struct {
	cfg     *config.Config
	domain  types.Domain
	log     *logger.Logger
	printer *i18n.Printer
	metrics *metrics.Metrics
	out     io.Writer
}

// prepare validates cfg, then creates the output directory. Every error it
// returns is fatal.
func prepare(cmd *cobra.Command, cfg *config.Config, domain types.Domain) (*run, error) {
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(domain); err != nil {
		return nil, fatal(err)
	}
	if err := fileutil.EnsureDir(cfg.Report.Dir); err != nil {
		return nil, fatal(err)
	}
	printer, err := i18n.New(cfg.Report.Language)
	if err != nil {
		return nil, fatal(err)
	}

	r := &run{
		cfg:     cfg,
		domain:  domain,
		log:     log.With("run", cfg.ID, "domain", domain),
		printer: printer,
		out:     cmd.OutOrStdout(),
	}
	if cfg.MetricsFile != "" {
		r.metrics = metrics.New()
	}
	return r, nil
}

func (r *run) reviewer() *reviewer.Reviewer {
	return reviewer.New(r.domain).
		WithConfigObject(r.cfg).
		WithLogger(r.log.GetSlogLogger())
}

func (r *run) options() []reviewer.ReviewOption {
	return []reviewer.ReviewOption{
		reviewer.WithRunID(r.cfg.ID),
		reviewer.WithMetrics(r.metrics),
	}
}

// finish writes the report files and the metrics, prints the summary and
// turns offenses into the exit status. A cancelled run writes nothing.
func (r *run) finish(ctx context.Context, result *reviewer.ReviewResult, err error) error {
	if err != nil {
		if ctx.Err() != nil {
			r.log.Warn(r.printer.T("Evaluation cancelled, no report written"), logger.Error(ctx.Err()))
			return &exitError{code: ExitOffense, err: ctx.Err()}
		}
		if errors.Is(err, admissibility.ErrInvalidAdmissibilityFile) || errors.Is(err, fs.ErrNotExist) {
			return fatal(err)
		}
		return err
	}

	formats, err := r.cfg.Report.ParsedFormats()
	if err != nil {
		return fatal(err)
	}
	verbosity, err := report.ParseVerbosity(r.cfg.Report.Verbosity)
	if err != nil {
		return fatal(err)
	}
	opts := report.RenderOptions{
		Printer:      r.printer,
		Verbosity:    verbosity,
		MaxOffenders: r.cfg.Report.MaxOffenders,
	}

	paths, err := report.WriteAll(r.cfg.Report.Dir, r.cfg.Report.Name, result.Report, formats, opts)
	if err != nil {
		return errors.Wrap(err, "failed to write report")
	}

	summary := opts
	summary.Verbosity = report.VerbosityNone
	if err := report.Render(r.out, result.Report, report.FormatText, summary); err != nil {
		return err
	}
	for _, p := range paths {
		printf(r.out, "%s\n", r.printer.Sprintf("Report written to %s", p))
	}

	if r.cfg.MetricsFile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
			r.log.Warn("failed to write metrics", "file", r.cfg.MetricsFile, logger.Error(err))
		}
	}

	if result.HasOffenses() && r.cfg.FailOnOffense {
		return &exitError{code: ExitOffense, err: errOffenses}
	}
	return nil
}

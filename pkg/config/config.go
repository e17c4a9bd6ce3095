// Package config holds the run configuration of a quality control run. A
// Config is built from defaults, an optional YAML or JSON file and command
// line flags, then validated once; it is not modified afterwards.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/geoqc/pkg/geometry"
	"github.com/nsxbet/geoqc/pkg/i18n"
	"github.com/nsxbet/geoqc/pkg/raster"
	"github.com/nsxbet/geoqc/pkg/report"
	"github.com/nsxbet/geoqc/pkg/types"
)

// ErrInvalidConfig is returned by Validate and LoadFromFile.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultPatterns are the raster file name patterns.
var DefaultPatterns = []string{"*.tif", "*.tiff"}

// Config represents the configuration of a quality control run
type Config struct {
	ID string `yaml:"id" json:"id"`
	// Controls are the rules to apply; "aall" selects every rule of the
	// domain.
	Controls []types.Rule `yaml:"controls" json:"controls"`
	// Tolerances are keyed by rule. An entry replaces the default of its
	// rule as a whole.
	Tolerances map[types.Rule]types.Tolerance `yaml:"tolerances" json:"tolerances"`

	Raster RasterConfig `yaml:"raster" json:"raster"`
	Vector VectorConfig `yaml:"vector" json:"vector"`
	Report ReportConfig `yaml:"report" json:"report"`

	Concurrency   int    `yaml:"concurrency" json:"concurrency"`
	FailOnOffense bool   `yaml:"fail_on_offense" json:"fail_on_offense"`
	MetricsFile   string `yaml:"metrics_file" json:"metrics_file"`
}

// RasterConfig configures raster discovery and measurement.
type RasterConfig struct {
	Input           string   `yaml:"input" json:"input"`
	Recursive       bool     `yaml:"recursive" json:"recursive"`
	Patterns        []string `yaml:"patterns" json:"patterns"`
	PreferWorldFile bool     `yaml:"prefer_world_file" json:"prefer_world_file"`
	// MaxBands limits dig_level to the first bands; 0 checks every band.
	MaxBands int `yaml:"max_bands" json:"max_bands"`
	// RadLow and RadHigh override the extreme value thresholds of
	// rad_balance. They must be set together.
	RadLow  *float64 `yaml:"rad_low" json:"rad_low"`
	RadHigh *float64 `yaml:"rad_high" json:"rad_high"`
}

// VectorConfig configures the PostGIS connection and intersection policy.
type VectorConfig struct {
	Connection geometry.ConnConfig `yaml:"connection" json:"connection"`
	Schema     string              `yaml:"schema" json:"schema"`
	// Admissibles is the path of the admissible intersections file.
	Admissibles          string `yaml:"admissibles" json:"admissibles"`
	SymmetricAdmissibles bool   `yaml:"symmetric_admissibles" json:"symmetric_admissibles"`
	StrictAdmissibles    bool   `yaml:"strict_admissibles" json:"strict_admissibles"`
}

// ReportConfig configures where and how the report is written.
type ReportConfig struct {
	Dir          string   `yaml:"dir" json:"dir"`
	Name         string   `yaml:"name" json:"name"`
	Formats      []string `yaml:"formats" json:"formats"`
	Verbosity    string   `yaml:"verbosity" json:"verbosity"`
	MaxOffenders int      `yaml:"max_offenders" json:"max_offenders"`
	Language     string   `yaml:"language" json:"language"`
}

// DefaultTolerances returns the tolerances used when neither the config
// file nor the flags set one. pixel_size has no default.
func DefaultTolerances() map[types.Rule]types.Tolerance {
	return map[types.Rule]types.Tolerance{
		types.RuleDigLevel:   {Conform: 8},
		types.RuleBandsLen:   {Conform: 3},
		types.RuleRadBalance: {Conform: 0.005},
		types.RuleNoData:     {Conform: 0},
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig(id string) *Config {
	return &Config{
		ID:         id,
		Controls:   []types.Rule{types.RuleAll},
		Tolerances: DefaultTolerances(),
		Raster: RasterConfig{
			Patterns: append([]string(nil), DefaultPatterns...),
		},
		Vector: VectorConfig{
			Connection: geometry.ConnConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		},
		Report: ReportConfig{
			Name:      "report",
			Formats:   []string{string(report.FormatText), string(report.FormatJSON)},
			Verbosity: string(report.VerbositySummary),
			Language:  "en",
		},
		Concurrency:   1,
		FailOnOffense: true,
	}
}

// LoadFromFile loads configuration from a file on top of DefaultConfig
func LoadFromFile(filename string) (*Config, error) {
	slog.Debug("Loading config from file", "filename", filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", filename)
	}

	config := DefaultConfig("")

	// Try YAML first, then JSON
	if yamlErr := yaml.Unmarshal(data, config); yamlErr != nil {
		slog.Debug("YAML unmarshal failed", "error", yamlErr)
		config = DefaultConfig("")
		if err := json.Unmarshal(data, config); err != nil {
			slog.Debug("JSON unmarshal failed", "error", err)
			return nil, errors.Wrapf(ErrInvalidConfig, "failed to parse config file %s: %v", filename, yamlErr)
		}
	}

	slog.Debug("Loaded config", "controls", config.Controls, "tolerances", len(config.Tolerances))
	return config, nil
}

// Rules returns the rules selected for a domain in canonical order.
func (c *Config) Rules(domain types.Domain) []types.Rule {
	return types.Expand(c.Controls, domain)
}

// SetTolerance overrides the tolerance of a rule, or of every rule of the
// domain for RuleAll.
func (c *Config) SetTolerance(rule types.Rule, domain types.Domain, conform, deviation *float64) {
	if c.Tolerances == nil {
		c.Tolerances = make(map[types.Rule]types.Tolerance)
	}
	for _, r := range types.Expand([]types.Rule{rule}, domain) {
		t := c.Tolerances[r]
		if conform != nil {
			t.Conform = *conform
		}
		if deviation != nil {
			t.Deviation = *deviation
		}
		c.Tolerances[r] = t
	}
}

// StatsOptions returns the raster statistics thresholds.
func (r RasterConfig) StatsOptions() raster.StatsOptions {
	if r.RadLow == nil || r.RadHigh == nil {
		return raster.StatsOptions{}
	}
	return raster.StatsOptions{Custom: true, Low: *r.RadLow, High: *r.RadHigh}
}

// Validate checks the configuration of a run over domain.
func (c *Config) Validate(domain types.Domain) error {
	if domain != types.DomainRaster && domain != types.DomainVector {
		return invalid("unknown domain %q", domain)
	}
	if len(c.Controls) == 0 {
		return invalid("no control selected")
	}
	for _, r := range c.Controls {
		if _, err := types.ParseRule(string(r)); err != nil {
			return invalid("%v", err)
		}
		if r != types.RuleAll && r.Domain() != domain {
			return invalid("control %s does not apply to %s data", r, domain)
		}
	}
	for r, t := range c.Tolerances {
		if r.Domain() == "" {
			return invalid("tolerance for unknown rule %q", r)
		}
		if err := t.Validate(); err != nil {
			return invalid("tolerance of %s: %v", r, err)
		}
	}
	if c.Concurrency < 1 {
		return invalid("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if err := c.Report.validate(); err != nil {
		return err
	}

	switch domain {
	case types.DomainRaster:
		return c.validateRaster()
	default:
		return c.validateVector()
	}
}

func (c *Config) validateRaster() error {
	for _, r := range c.Rules(types.DomainRaster) {
		if r == types.RulePixelSize && c.Tolerances[r].Conform <= 0 {
			return invalid("pixel_size needs a conform value greater than 0; set tolerances.pixel_size in the config file or use --control pixel_size --conform")
		}
	}
	if c.Raster.Input == "" {
		return invalid("no input directory")
	}
	info, err := os.Stat(c.Raster.Input)
	if err != nil {
		return invalid("input directory %s: %v", c.Raster.Input, err)
	}
	if !info.IsDir() {
		return invalid("input %s is not a directory", c.Raster.Input)
	}
	if len(c.Raster.Patterns) == 0 {
		return invalid("no raster file pattern")
	}
	if c.Raster.MaxBands < 0 {
		return invalid("max bands must be >= 0, got %d", c.Raster.MaxBands)
	}
	if (c.Raster.RadLow == nil) != (c.Raster.RadHigh == nil) {
		return invalid("rad_low and rad_high must be set together")
	}
	if c.Raster.RadLow != nil && *c.Raster.RadLow >= *c.Raster.RadHigh {
		return invalid("rad_low (%v) must be lower than rad_high (%v)", *c.Raster.RadLow, *c.Raster.RadHigh)
	}
	return nil
}

func (c *Config) validateVector() error {
	conn := c.Vector.Connection
	if conn.Database == "" {
		return invalid("no database name")
	}
	if conn.User == "" {
		return invalid("no database user")
	}
	if conn.Port < 0 || conn.Port > 65535 {
		return invalid("invalid port %d", conn.Port)
	}
	if c.Vector.Schema == "" {
		return invalid("no schema")
	}
	return nil
}

func (r ReportConfig) validate() error {
	if r.Dir == "" {
		return invalid("no output directory")
	}
	if r.Name == "" || strings.ContainsAny(r.Name, `/\`) {
		return invalid("invalid report name %q", r.Name)
	}
	if _, err := r.ParsedFormats(); err != nil {
		return invalid("%v", err)
	}
	if _, err := report.ParseVerbosity(r.Verbosity); err != nil {
		return invalid("%v", err)
	}
	if _, err := i18n.New(r.Language); err != nil {
		return invalid("%v", err)
	}
	if r.MaxOffenders < 0 {
		return invalid("max offenders must be >= 0, got %d", r.MaxOffenders)
	}
	return nil
}

// ParsedFormats returns the report formats.
func (r ReportConfig) ParsedFormats() ([]report.Format, error) {
	return report.ParseFormats(strings.Join(r.Formats, ","))
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

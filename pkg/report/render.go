package report

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/geoqc/pkg/i18n"
)

// Format is a report serialisation.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Extension is the file extension used when writing the format.
func (f Format) Extension() string {
	if f == FormatText {
		return ".txt"
	}
	return "." + string(f)
}

// ParseFormats parses a comma separated list of formats, keeping the first
// occurrence of each.
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		switch f {
		case FormatText, FormatJSON, FormatYAML, FormatCSV:
		default:
			return nil, errors.Errorf("unsupported report format: %s", part)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("no report format given")
	}
	return formats, nil
}

// Verbosity controls how much the text renderer prints.
type Verbosity string

const (
	// VerbosityNone prints only the summary line.
	VerbosityNone Verbosity = "none"
	// VerbositySummary prints the per-rule table and the offending items.
	VerbositySummary Verbosity = "summary"
	// VerbosityFull also prints passing items and every offending feature.
	VerbosityFull Verbosity = "full"
)

// ParseVerbosity validates a verbosity name.
func ParseVerbosity(s string) (Verbosity, error) {
	switch v := Verbosity(strings.ToLower(strings.TrimSpace(s))); v {
	case VerbosityNone, VerbositySummary, VerbosityFull:
		return v, nil
	case "":
		return VerbositySummary, nil
	default:
		return "", errors.Errorf("unsupported summary level: %s", s)
	}
}

// RenderOptions tune the human readable renderers.
type RenderOptions struct {
	Printer   *i18n.Printer
	Verbosity Verbosity
	// MaxOffenders caps the features listed per outcome in text output;
	// 0 lists them all.
	MaxOffenders int
}

// Render writes the report in the given format.
func Render(w io.Writer, r *Report, format Format, opts RenderOptions) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, r)
	case FormatYAML:
		return renderYAML(w, r)
	case FormatCSV:
		return renderCSV(w, r)
	case FormatText:
		return renderText(w, r, opts)
	default:
		return errors.Errorf("unsupported report format: %s", format)
	}
}

func renderJSON(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

func renderYAML(w io.Writer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(r)
}

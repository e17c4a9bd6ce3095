// Package i18n localises the text rendering of reports. Messages are keyed by
// their English text; English needs no translation.
package i18n

import (
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported lists the report languages.
var Supported = []language.Tag{language.English, language.Spanish}

var spanish = map[string]string{
	"Quality control report":             "Informe de control de calidad",
	"Run":                                "Ejecución",
	"Domain":                             "Dominio",
	"Started":                            "Inicio",
	"Finished":                           "Fin",
	"Parameters":                         "Parámetros",
	"Summary":                            "Resumen",
	"Rule":                               "Control",
	"Item":                               "Elemento",
	"Verdict":                            "Resultado",
	"Measured":                           "Medido",
	"Expected":                           "Esperado",
	"Detail":                             "Detalle",
	"Error":                              "Error",
	"Total":                              "Total",
	"Pass":                               "Correcto",
	"Fail":                               "Incorrecto",
	"Feature":                            "Entidad",
	"Related":                            "Relacionadas",
	"Reason":                             "Motivo",
	"Location":                           "Ubicación",
	"pass":                               "correcto",
	"fail":                               "incorrecto",
	"error":                              "error",
	"No offending items.":                "No hay elementos incorrectos.",
	"%d items checked, %d rule outcomes": "%d elementos revisados, %d resultados",
	"%d offending features":              "%d entidades incorrectas",
	"%d pass, %d fail, %d error":         "%d correctos, %d incorrectos, %d errores",
	"Offending items":                    "Elementos incorrectos",
	"and %d more":                        "y %d más",
	"Report written to %s":               "Informe escrito en %s",
	"Evaluation cancelled, no report written": "Evaluación cancelada, no se ha escrito el informe",
}

var builder = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range spanish {
		_ = b.SetString(language.Spanish, key, msg)
	}
	return b
}

// Printer renders messages in one language. A nil *Printer renders English.
type Printer struct {
	tag     language.Tag
	printer *message.Printer
	caser   cases.Caser
}

// New returns a printer for a BCP 47 language such as "en" or "es".
func New(lang string) (*Printer, error) {
	if lang == "" {
		lang = "en"
	}
	requested, err := language.Parse(lang)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid language %q", lang)
	}
	_, idx, confidence := language.NewMatcher(Supported).Match(requested)
	if confidence == language.No {
		return nil, errors.Errorf("unsupported language %q", lang)
	}
	tag := Supported[idx]
	return &Printer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
		caser:   cases.Title(tag),
	}, nil
}

// English returns the default printer.
func English() *Printer {
	p, _ := New("en")
	return p
}

// Tag is the language of the printer.
func (p *Printer) Tag() language.Tag {
	if p == nil {
		return language.English
	}
	return p.tag
}

// Sprintf formats a localised message.
func (p *Printer) Sprintf(key string, args ...any) string {
	if p == nil {
		p = English()
	}
	return p.printer.Sprintf(key, args...)
}

// T translates a message without arguments.
func (p *Printer) T(key string) string {
	return p.Sprintf(key)
}

// Title upper-cases the first letter of each word using the language rules.
func (p *Printer) Title(s string) string {
	if p == nil {
		p = English()
	}
	return p.caser.String(s)
}

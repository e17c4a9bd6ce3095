// Package admissibility holds the allow-list of table pairs whose features
// may legitimately intersect, such as a bridge crossing a river.
package admissibility

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidAdmissibilityFile is returned when the allow-list is not a
// mapping of table names to lists of table names.
var ErrInvalidAdmissibilityFile = errors.New("invalid admissibility file")

// Policy answers whether an intersection between two tables is allowed.
// A Policy is read-only after construction and safe for concurrent use.
type Policy struct {
	allowed   map[string]map[string]struct{}
	symmetric bool
}

// New builds a policy from table -> admissible tables.
func New(entries map[string][]string) *Policy {
	p := &Policy{allowed: make(map[string]map[string]struct{}, len(entries))}
	for table, others := range entries {
		set := make(map[string]struct{}, len(others))
		for _, o := range others {
			set[o] = struct{}{}
		}
		p.allowed[table] = set
	}
	return p
}

// Load reads a policy from a YAML or JSON file. An empty path yields an empty
// policy that admits nothing.
func Load(path string) (*Policy, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read admissibility file %s", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return p, nil
}

// Parse decodes a mapping of table names to lists of table names, with at
// least one entry. JSON input is accepted as the YAML subset it is.
func Parse(data []byte) (*Policy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "%v", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.Wrap(ErrInvalidAdmissibilityFile, "no entries")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "line %d: expected a mapping of table names", root.Line)
	}
	if len(root.Content) == 0 {
		return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "line %d: no entries", root.Line)
	}

	entries := make(map[string][]string, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if !isString(key) || strings.TrimSpace(key.Value) == "" {
			return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "line %d: table name must be a non-empty string", key.Line)
		}
		if _, dup := entries[key.Value]; dup {
			return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "line %d: table %q listed twice", key.Line, key.Value)
		}
		if value.Kind != yaml.SequenceNode {
			return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "line %d: table %q must map to a list of tables", value.Line, key.Value)
		}
		others := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if !isString(item) || strings.TrimSpace(item.Value) == "" {
				return nil, errors.Wrapf(ErrInvalidAdmissibilityFile, "line %d: entries of %q must be table names", item.Line, key.Value)
			}
			others = append(others, item.Value)
		}
		entries[key.Value] = others
	}
	return New(entries), nil
}

func isString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

// WithSymmetric returns a view of the policy where an entry admits both
// directions.
func (p *Policy) WithSymmetric() *Policy {
	return &Policy{allowed: p.allowed, symmetric: true}
}

// Symmetric reports whether entries admit both directions.
func (p *Policy) Symmetric() bool { return p.symmetric }

// IsAdmissible reports whether features of table a may intersect features of
// table b. Names may be schema-qualified; a bare entry matches any schema.
func (p *Policy) IsAdmissible(a, b string) bool {
	if p == nil {
		return false
	}
	if p.allows(a, b) {
		return true
	}
	return p.symmetric && p.allows(b, a)
}

func (p *Policy) allows(a, b string) bool {
	for _, from := range candidates(a) {
		set, ok := p.allowed[from]
		if !ok {
			continue
		}
		for _, to := range candidates(b) {
			if _, ok := set[to]; ok {
				return true
			}
		}
	}
	return false
}

func candidates(name string) []string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return []string{name, name[i+1:]}
	}
	return []string{name}
}

// Len returns the number of tables with an entry.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.allowed)
}

// Entries returns a sorted copy of the allow-list.
func (p *Policy) Entries() map[string][]string {
	out := make(map[string][]string, p.Len())
	if p == nil {
		return out
	}
	for table, set := range p.allowed {
		others := make([]string, 0, len(set))
		for o := range set {
			others = append(others, o)
		}
		sort.Strings(others)
		out[table] = others
	}
	return out
}

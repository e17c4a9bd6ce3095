package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		input   string
		want    Rule
		wantErr bool
	}{
		{input: "pixel_size", want: RulePixelSize},
		{input: "NODATA", want: RuleNoData},
		{input: " intersect ", want: RuleIntersect},
		{input: "aall", want: RuleAll},
		{input: "all", want: RuleAll},
		{input: "srid", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRule(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleDomain(t *testing.T) {
	assert.Equal(t, DomainRaster, RuleRadBalance.Domain())
	assert.Equal(t, DomainVector, RuleNull.Domain())
	assert.Equal(t, Domain(""), RuleAll.Domain())
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name   string
		rules  []Rule
		domain Domain
		want   []Rule
	}{
		{
			name:   "all raster",
			rules:  []Rule{RuleAll},
			domain: DomainRaster,
			want:   []Rule{RulePixelSize, RuleDigLevel, RuleBandsLen, RuleRadBalance, RuleNoData},
		},
		{
			name:   "all vector includes intersect",
			rules:  []Rule{RuleAll},
			domain: DomainVector,
			want:   []Rule{RuleInvalid, RuleDuplicate, RuleMultipart, RuleIntersect, RuleNull},
		},
		{
			name:   "canonical order and dedup",
			rules:  []Rule{RuleNull, RuleInvalid, RuleNull},
			domain: DomainVector,
			want:   []Rule{RuleInvalid, RuleNull},
		},
		{
			name:   "foreign domain dropped",
			rules:  []Rule{RulePixelSize, RuleInvalid},
			domain: DomainRaster,
			want:   []Rule{RulePixelSize},
		},
		{
			name:   "all plus single is all",
			rules:  []Rule{RuleNoData, RuleAll},
			domain: DomainRaster,
			want:   RulesFor(DomainRaster),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.rules, tt.domain))
		})
	}
}

func TestRulesForReturnsCopy(t *testing.T) {
	rules := RulesFor(DomainRaster)
	rules[0] = RuleNull
	assert.Equal(t, RulePixelSize, RulesFor(DomainRaster)[0])
}

func TestRuleUnmarshal(t *testing.T) {
	var fromJSON struct {
		Rules []Rule `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"rules":["all","null"]}`), &fromJSON))
	assert.Equal(t, []Rule{RuleAll, RuleNull}, fromJSON.Rules)

	var fromYAML struct {
		Rules []Rule `yaml:"rules"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("rules: [bands_len]\n"), &fromYAML))
	assert.Equal(t, []Rule{RuleBandsLen}, fromYAML.Rules)

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), new(Rule)))
}

// Package knowledge holds the laboratory test knowledge base: reference
// ranges plus every name-keyed rule table used to classify values and write
// the clinical narrative.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var document []byte

// Fallback texts used when no profile provides one.
const (
	DefaultRangeText     = "Consultar valores de referencia del laboratorio"
	DefaultAction        = "Consultar con médico especialista"
	reasonTemplate       = "Valor %s fuera de rango normal. Requiere evaluación médica."
	significanceTemplate = "Valor %s fuera del rango normal. Requiere evaluación médica especializada."
)

// Range is the clinically normal interval for a test.
type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Unit string  `yaml:"unit" json:"unit"`
}

// Tier is the urgency weight a test family carries when its value is abnormal.
type Tier string

const (
	TierNone     Tier = ""
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Text is a sentence that may vary with the value status.
type Text struct {
	Any  string `yaml:"any"`
	High string `yaml:"high"`
	Low  string `yaml:"low"`
}

// For returns the status-specific text, falling back to Any.
func (t Text) For(status string) string {
	switch {
	case status == "high" && t.High != "":
		return t.High
	case status == "low" && t.Low != "":
		return t.Low
	}
	return t.Any
}

// Lists is a list of strings that may vary with the value status.
type Lists struct {
	Any  []string `yaml:"any"`
	High []string `yaml:"high"`
	Low  []string `yaml:"low"`
}

// For returns the status-specific list, falling back to Any.
func (l Lists) For(status string) []string {
	switch {
	case status == "high" && len(l.High) > 0:
		return l.High
	case status == "low" && len(l.Low) > 0:
		return l.Low
	}
	return l.Any
}

// Profile describes one test family.
type Profile struct {
	Key          string   `yaml:"key"`
	Match        []string `yaml:"match"`
	Range        *Range   `yaml:"range"`
	RangeText    string   `yaml:"range_text"`
	Tier         Tier     `yaml:"tier"`
	Reason       Text     `yaml:"reason"`
	Significance Text     `yaml:"significance"`
	Actions      []string `yaml:"actions"`
	Causes       Lists    `yaml:"causes"`
}

// Matches reports whether every match token is contained in the folded,
// upper-cased test name.
func (p *Profile) Matches(upper string) bool {
	for _, m := range p.Match {
		if !strings.Contains(upper, m) {
			return false
		}
	}
	return len(p.Match) > 0
}

// Base is an immutable, ordered set of profiles. It is safe for concurrent use.
type Base struct {
	profiles []Profile
	byKey    map[string]*Profile
}

type file struct {
	Profiles []Profile `yaml:"profiles"`
}

// Parse builds a Base from a YAML document.
func Parse(data []byte) (*Base, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("knowledge base has no profiles")
	}

	b := &Base{
		profiles: f.Profiles,
		byKey:    make(map[string]*Profile, len(f.Profiles)),
	}
	for i := range b.profiles {
		p := &b.profiles[i]
		if len(p.Match) == 0 {
			return nil, fmt.Errorf("profile %d (%q): match is required", i, p.Key)
		}
		for j, m := range p.Match {
			p.Match[j] = strings.ToUpper(Fold(m))
		}
		if p.Range != nil && p.Range.Min > p.Range.Max {
			return nil, fmt.Errorf("profile %q: min %v exceeds max %v", p.Key, p.Range.Min, p.Range.Max)
		}
		if p.Key == "" {
			if p.Range != nil {
				return nil, fmt.Errorf("profile %d: range without key", i)
			}
			continue
		}
		if _, dup := b.byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate profile key %q", p.Key)
		}
		b.byKey[p.Key] = p
	}
	return b, nil
}

var loadDefault = sync.OnceValues(func() (*Base, error) {
	return Parse(document)
})

// Load returns the embedded knowledge base, parsed once per process.
func Load() (*Base, error) {
	return loadDefault()
}

// Range returns the reference range for a test name, looked up by its
// canonical key.
func (b *Base) Range(name string) (Range, bool) {
	p, ok := b.byKey[Key(name)]
	if !ok || p.Range == nil {
		return Range{}, false
	}
	return *p.Range, true
}

// Ranges returns a copy of the reference table keyed by canonical name.
func (b *Base) Ranges() map[string]Range {
	out := make(map[string]Range, len(b.byKey))
	for k, p := range b.byKey {
		if p.Range != nil {
			out[k] = *p.Range
		}
	}
	return out
}

// Family returns the first profile matching the test name, or nil.
func (b *Base) Family(name string) *Profile {
	upper := strings.ToUpper(Fold(name))
	for i := range b.profiles {
		if b.profiles[i].Matches(upper) {
			return &b.profiles[i]
		}
	}
	return nil
}

// RangeText is the human readable reference range for a test name.
func (b *Base) RangeText(name string) string {
	if p := b.Family(name); p != nil && p.RangeText != "" {
		return p.RangeText
	}
	return DefaultRangeText
}

// Tier returns the urgency tier of the test family.
func (b *Base) Tier(name string) Tier {
	if p := b.Family(name); p != nil {
		return p.Tier
	}
	return TierNone
}

// Reason is the short explanation attached to a suspicious finding.
func (b *Base) Reason(name, status string) string {
	if p := b.Family(name); p != nil {
		if s := p.Reason.For(status); s != "" {
			return s
		}
	}
	return fmt.Sprintf(reasonTemplate, status)
}

// Significance is the longer explanation attached to an abnormal report row.
func (b *Base) Significance(name, status string) string {
	if p := b.Family(name); p != nil {
		if s := p.Significance.For(status); s != "" {
			return s
		}
	}
	return fmt.Sprintf(significanceTemplate, status)
}

// Actions returns the urgent actions for the test family; nil when the
// family defines none.
func (b *Base) Actions(name string) []string {
	if p := b.Family(name); p != nil {
		return p.Actions
	}
	return nil
}

// Causes returns the possible causes for an abnormal value of the test.
func (b *Base) Causes(name, status string) []string {
	if p := b.Family(name); p != nil {
		return p.Causes.For(status)
	}
	return nil
}

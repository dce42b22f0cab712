// Package labs turns loosely structured laboratory text into typed
// measurements and classifies them against reference ranges.
package labs

import (
	"regexp"
	"strconv"
	"strings"
)

// Measurement is one (name, value, unit) triple found in the text.
type Measurement struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	RawText string  `json:"raw_text"`
}

const (
	units = `mg/dl|mg/l|g/dl|ui/l|u/l|iu/ml|ng/ml|ng/dl|pg/ml|mui/l|[µμ]g/dl|mmol/l|/mm³|/mm3|%`
	// A name is one or more words on a single line. It must not start inside
	// a word, a number or a unit such as "mg/dl".
	name = `(?:^|[^\p{L}\p{N}/_-])([\p{L}][\p{L}\p{N}_-]*(?:[ \t]+[\p{L}][\p{L}\p{N}_-]*)*)`
)

type pattern struct {
	re *regexp.Regexp
	// unitless patterns only accept matches whose value is not followed by
	// a unit; those values belong to the unit-bearing patterns.
	unitless bool
}

// Order matters: results are reported pattern by pattern.
var patterns = []pattern{
	{re: regexp.MustCompile(`(?i)` + name + `[ \t]*:\s*([\d.,]+)\s*(` + units + `)`)},
	{re: regexp.MustCompile(`(?i)` + name + `\s+([\d.,]+)\s*(` + units + `)`)},
	{re: regexp.MustCompile(`(?i)` + name + `[ \t]*:\s*([\d.,]+)(\s*(?:` + units + `))?`), unitless: true},
}

// Extract scans text for measurements. Values that do not parse as numbers
// are skipped. Matches are returned in pattern order, then in text order;
// overlapping matches from different patterns are not merged.
func Extract(text string) []Measurement {
	var out []Measurement
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if p.unitless && m[3] != "" {
				continue
			}
			value, err := parseNumber(m[2])
			if err != nil {
				continue
			}

			groups := []string{strings.TrimSpace(m[1]), m[2]}
			unit := ""
			if !p.unitless {
				unit = m[3]
				groups = append(groups, unit)
			}

			out = append(out, Measurement{
				Name:    canonicalName(m[1]),
				Value:   value,
				Unit:    unit,
				RawText: strings.Join(groups, " "),
			})
		}
	}
	return out
}

// ExtractKnown is Extract with names resolved against the reference table.
// Lines often carry leading words ("Resultado glucosa: 180 mg/dl"), so a
// name without a reference range is retried by its trailing words, longest
// first. When none of them has a range the last word is kept.
func ExtractKnown(text string, ranges RangeLookup) []Measurement {
	out := Extract(text)
	for i := range out {
		out[i].Name = resolveName(out[i].Name, ranges)
	}
	return out
}

func resolveName(name string, ranges RangeLookup) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return name
	}
	for i := range words {
		candidate := strings.Join(words[i:], " ")
		if _, ok := ranges.Range(candidate); ok {
			return candidate
		}
	}
	return words[len(words)-1]
}

// parseNumber accepts a comma as decimal separator.
func parseNumber(token string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
}

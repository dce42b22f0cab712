package labs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Skufu/labinterpreter/internal/knowledge"
)

// Status is the classification of a value against its reference range.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusLow     Status = "low"
	StatusHigh    Status = "high"
	StatusUnknown Status = "unknown"
)

// Abnormal reports whether the value is outside its reference range.
// Unknown values are never abnormal.
func (s Status) Abnormal() bool {
	return s == StatusLow || s == StatusHigh
}

// Alert severities.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// RangeLookup resolves the reference range of a test name.
type RangeLookup interface {
	Range(name string) (knowledge.Range, bool)
}

// Value is a classified measurement.
type Value struct {
	Measurement
	Status  Status           `json:"status"`
	Title   string           `json:"title"`
	Display string           `json:"display"`
	Range   *knowledge.Range `json:"normal_range,omitempty"`
}

// Alert warns about a single out-of-range value.
type Alert struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Classify assigns a status to every measurement, keeping input order, and
// emits one alert per low or high value.
func Classify(measurements []Measurement, ranges RangeLookup) ([]Value, []Alert) {
	values := make([]Value, 0, len(measurements))
	var alerts []Alert

	for _, m := range measurements {
		v := Value{
			Measurement: m,
			Status:      StatusUnknown,
			Title:       Title(m.Name),
			Display:     FormatValue(m.Value, m.Unit),
		}

		if r, ok := ranges.Range(m.Name); ok {
			v.Range = &r
			v.Status = statusFor(m.Value, r)
			if a, ok := alertFor(v, r); ok {
				alerts = append(alerts, a)
			}
		}
		values = append(values, v)
	}
	return values, alerts
}

func statusFor(value float64, r knowledge.Range) Status {
	switch {
	case value < r.Min:
		return StatusLow
	case value > r.Max:
		return StatusHigh
	default:
		return StatusNormal
	}
}

func alertFor(v Value, r knowledge.Range) (Alert, bool) {
	shown := FormatValue(v.Value, v.Unit)
	switch v.Status {
	case StatusHigh:
		severity := SeverityMedium
		if v.Value > r.Max*1.5 {
			severity = SeverityHigh
		}
		return Alert{
			Title:       v.Title + " Elevado",
			Description: fmt.Sprintf("El valor de %s (%s) está por encima del rango normal", v.Name, shown),
			Severity:    severity,
		}, true
	case StatusLow:
		severity := SeverityMedium
		if v.Value < r.Min*0.5 {
			severity = SeverityHigh
		}
		return Alert{
			Title:       v.Title + " Bajo",
			Description: fmt.Sprintf("El valor de %s (%s) está por debajo del rango normal", v.Name, shown),
			Severity:    severity,
		}, true
	}
	return Alert{}, false
}

// FormatValue renders "<value> <unit>", dropping the unit when empty.
func FormatValue(value float64, unit string) string {
	return strings.TrimSpace(strconv.FormatFloat(value, 'f', -1, 64) + " " + unit)
}

// Abnormal returns the low and high values, in order.
func Abnormal(values []Value) []Value {
	var out []Value
	for _, v := range values {
		if v.Status.Abnormal() {
			out = append(out, v)
		}
	}
	return out
}

package labs

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	agePattern    = regexp.MustCompile(`(?i)(\d+)\s*años?`)
	genderPattern = regexp.MustCompile(`(?i)\b(masculino|femenino)\b`)
)

// DerivePatientInfo reads age and gender from report text for callers that
// did not send patient details. Only the fields found are set.
func DerivePatientInfo(text string) map[string]any {
	info := map[string]any{}

	if m := agePattern.FindStringSubmatch(text); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil {
			info["age"] = age
		}
	}
	if m := genderPattern.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], "femenino") {
			info["gender"] = "F"
		} else {
			info["gender"] = "M"
		}
	}
	return info
}

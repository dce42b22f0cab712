package knowledge

import (
	"strings"
	"testing"
)

func mustLoad(t *testing.T) *Base {
	t.Helper()
	kb, err := Load()
	if err != nil {
		t.Fatalf("load knowledge base: %v", err)
	}
	return kb
}

func TestLoadEmbeddedRanges(t *testing.T) {
	kb := mustLoad(t)

	ranges := kb.Ranges()
	for _, key := range []string{
		"glucosa", "colesterol_total", "hdl_colesterol", "ldl_colesterol", "trigliceridos",
		"hemoglobina", "hematocrito", "leucocitos", "creatinina", "urea",
		"bilirrubina_total", "tsh", "t3", "t4", "ck_mb", "troponina", "cpk",
	} {
		if _, ok := ranges[key]; !ok {
			t.Errorf("expected range for %q", key)
		}
	}

	if len(ranges) != 17 {
		t.Errorf("expected 17 ranges, got %d", len(ranges))
	}

	g := ranges["glucosa"]
	if g.Min != 70 || g.Max != 100 || g.Unit != "mg/dl" {
		t.Fatalf("unexpected glucosa range: %+v", g)
	}
}

func TestRangeUsesCanonicalKey(t *testing.T) {
	kb := mustLoad(t)

	tests := []struct {
		name string
		ok   bool
	}{
		{"glucosa", true},
		{"  GLUCOSA ", true},
		{"colesterol total", true},
		{"Triglicéridos", true},
		{"ck-mb", true},
		{"resultado de glucosa", false},
		{"colesterol", false},
		{"ferritina", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := kb.Range(tt.name); ok != tt.ok {
				t.Fatalf("Range(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
		})
	}
}

func TestFamilyOrder(t *testing.T) {
	kb := mustLoad(t)

	tests := []struct {
		name    string
		wantKey string
	}{
		{"hdl_colesterol", "hdl_colesterol"},
		{"colesterol_total", "colesterol_total"},
		{"colesterol", ""},
		{"glucosa postprandial", "glucosa"},
		{"CK-MB", "ck_mb"},
	}
	for _, tt := range tests {
		p := kb.Family(tt.name)
		if p == nil {
			t.Fatalf("Family(%q) = nil", tt.name)
		}
		if p.Key != tt.wantKey {
			t.Errorf("Family(%q).Key = %q, want %q", tt.name, p.Key, tt.wantKey)
		}
	}

	if kb.Family("ferritina") != nil {
		t.Fatal("expected no family for ferritina")
	}
}

func TestTextsByStatus(t *testing.T) {
	kb := mustLoad(t)

	if got := kb.Reason("Glucosa", "high"); !strings.HasPrefix(got, "Hiperglucemia") {
		t.Errorf("glucosa high reason = %q", got)
	}
	if got := kb.Reason("Glucosa", "low"); !strings.HasPrefix(got, "Hipoglucemia") {
		t.Errorf("glucosa low reason = %q", got)
	}
	if got := kb.Significance("Hemoglobina", "low"); !strings.HasPrefix(got, "Anemia") {
		t.Errorf("hemoglobina low significance = %q", got)
	}
	if got := kb.Reason("Ferritina", "high"); got != "Valor high fuera de rango normal. Requiere evaluación médica." {
		t.Errorf("generic reason = %q", got)
	}
	if got := kb.Significance("Urea", "high"); got != "Valor high fuera del rango normal. Requiere evaluación médica especializada." {
		t.Errorf("urea significance = %q", got)
	}
	if got := kb.RangeText("Ferritina"); got != DefaultRangeText {
		t.Errorf("range text = %q", got)
	}
	if got := kb.RangeText("HDL_Colesterol"); got != ">40 mg/dl" {
		t.Errorf("hdl range text = %q", got)
	}
	if got := kb.Causes("Hemoglobina", "high"); len(got) != 3 || got[0] != "Policitemia vera" {
		t.Errorf("hemoglobina high causes = %v", got)
	}
}

func TestTiers(t *testing.T) {
	kb := mustLoad(t)

	tests := map[string]Tier{
		"glucosa":    TierCritical,
		"troponina":  TierCritical,
		"creatinina": TierCritical,
		"urea":       TierHigh,
		"leucocitos": TierHigh,
		"cpk":        TierNone,
		"tsh":        TierNone,
		"ferritina":  TierNone,
	}
	for name, want := range tests {
		if got := kb.Tier(name); got != want {
			t.Errorf("Tier(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"empty":        "profiles: []",
		"no match":     "profiles:\n  - key: a\n",
		"inverted":     "profiles:\n  - key: a\n    match: [A]\n    range: {min: 5, max: 1}\n",
		"duplicate":    "profiles:\n  - key: a\n    match: [A]\n  - key: a\n    match: [B]\n",
		"keyless":      "profiles:\n  - match: [A]\n    range: {min: 1, max: 2}\n",
		"invalid yaml": "profiles: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := map[string]string{
		"Colesterol Total":  "colesterol_total",
		"CK-MB":             "ck_mb",
		" Triglicéridos ":   "trigliceridos",
		"bilirrubina_total": "bilirrubina_total",
	}
	for in, want := range tests {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

// Package narrative writes the clinical narrative for a set of classified
// laboratory values: summary, findings, urgency, actions and causes.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Skufu/labinterpreter/internal/knowledge"
	"github.com/Skufu/labinterpreter/internal/labs"
)

const (
	concernHigh   = "ALTA"
	concernMedium = "MEDIA"
	maxCauses     = 5
)

// Finding is a suspicious value with its explanation.
type Finding struct {
	Value   string `json:"value"`
	Result  string `json:"result"`
	Concern string `json:"concern"`
	Reason  string `json:"reason"`
}

// Synthesis is the narrative produced either by the rule engine or by an AI
// backend. Its JSON form is the contract AI backends must answer with.
type Synthesis struct {
	Summary            string    `json:"summary"`
	SuspiciousFindings []Finding `json:"suspicious_findings"`
	NormalFindings     []string  `json:"normal_findings"`
	UrgentActions      []string  `json:"urgent_actions"`
	FollowUp           []string  `json:"follow_up"`
	UrgencyLevel       string    `json:"urgency_level"`
	Confidence         float64   `json:"confidence,omitempty"`
}

// Rules is the part of the knowledge base the synthesizer reads.
type Rules interface {
	TierLookup
	Reason(name, status string) string
	Actions(name string) []string
	Causes(name, status string) []string
}

// Synthesize builds the narrative for the classified values.
func Synthesize(values []labs.Value, rules Rules) Synthesis {
	abnormal := labs.Abnormal(values)

	s := Synthesis{
		Summary:            Summary(abnormal),
		SuspiciousFindings: []Finding{},
		NormalFindings:     []string{},
		UrgentActions:      UrgentActions(abnormal, rules),
		FollowUp:           FollowUp(len(abnormal)),
		UrgencyLevel:       string(Urgency(values, rules)),
	}
	for _, v := range values {
		switch {
		case v.Status.Abnormal():
			concern := concernMedium
			if v.Status == labs.StatusHigh {
				concern = concernHigh
			}
			s.SuspiciousFindings = append(s.SuspiciousFindings, Finding{
				Value:   v.Title,
				Result:  v.Display,
				Concern: concern,
				Reason:  rules.Reason(v.Name, string(v.Status)),
			})
		case v.Status == labs.StatusNormal:
			s.NormalFindings = append(s.NormalFindings, fmt.Sprintf("%s: %s (normal)", v.Title, v.Display))
		}
	}
	return s
}

// Summary is the one-line overview of the abnormal values.
func Summary(abnormal []labs.Value) string {
	if len(abnormal) == 0 {
		return "Todos los valores están dentro de rangos normales."
	}
	names := make([]string, 0, len(abnormal))
	for _, v := range abnormal {
		names = append(names, v.Title)
	}
	return fmt.Sprintf("Se detectaron %d valores anormales: %s. Requiere atención médica.",
		len(abnormal), strings.Join(names, ", "))
}

// UrgentActions accumulates the family actions of every abnormal value.
// Repeated families repeat their actions.
func UrgentActions(abnormal []labs.Value, rules Rules) []string {
	if len(abnormal) == 0 {
		return []string{}
	}
	var actions []string
	for _, v := range abnormal {
		actions = append(actions, rules.Actions(v.Name)...)
	}
	if len(actions) == 0 {
		return []string{knowledge.DefaultAction}
	}
	return actions
}

// FollowUp returns the follow-up plan for the number of abnormal values.
func FollowUp(abnormal int) []string {
	if abnormal > 0 {
		return []string{"Repetir análisis en 7-14 días", "Seguimiento médico cercano"}
	}
	return []string{"Continuar con controles rutinarios"}
}

// PossibleCauses lists the causes of the abnormal values, first occurrence
// wins, capped at five entries.
func PossibleCauses(values []labs.Value, rules Rules) []string {
	seen := make(map[string]bool)
	causes := []string{}
	for _, v := range values {
		if !v.Status.Abnormal() {
			continue
		}
		for _, c := range rules.Causes(v.Name, string(v.Status)) {
			if seen[c] {
				continue
			}
			seen[c] = true
			causes = append(causes, c)
			if len(causes) == maxCauses {
				return causes
			}
		}
	}
	return causes
}

// Title heads the interpretation block.
func Title(level Level, abnormal int) string {
	switch {
	case level == LevelCritical:
		return "Resultados Críticos - Atención Médica Inmediata Requerida"
	case level == LevelHigh:
		return "Resultados con Alteraciones Significativas"
	case abnormal > 0:
		return "Resultados con Algunas Alteraciones"
	default:
		return "Resultados Dentro de Parámetros Normales"
	}
}

// ClinicalSignificance is the overall significance paragraph.
func ClinicalSignificance(abnormal int) string {
	switch abnormal {
	case 0:
		return "Todos los valores están dentro de los rangos normales. No se detectan alteraciones significativas."
	case 1:
		return "Se detecta una alteración aislada que requiere evaluación médica específica."
	default:
		return fmt.Sprintf("Se detectan %d alteraciones que requieren evaluación médica integral.", abnormal)
	}
}

// RuleGenerator answers any prompt with the rule-based narrative of its
// values, encoded in the same JSON contract AI backends use.
type RuleGenerator struct {
	Values []labs.Value
	Rules  Rules
}

// Generate ignores the prompt.
func (g RuleGenerator) Generate(_ context.Context, _ string) (string, error) {
	raw, err := json.Marshal(Synthesize(g.Values, g.Rules))
	if err != nil {
		return "", fmt.Errorf("encode rule synthesis: %w", err)
	}
	return string(raw), nil
}

// Decode parses a generator reply. Markdown code fences around the JSON
// are tolerated; a reply without a summary is rejected.
func Decode(raw string) (Synthesis, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var s Synthesis
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &s); err != nil {
		return Synthesis{}, fmt.Errorf("decode synthesis: %w", err)
	}
	if strings.TrimSpace(s.Summary) == "" {
		return Synthesis{}, fmt.Errorf("decode synthesis: summary is empty")
	}
	return s, nil
}

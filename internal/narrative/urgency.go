package narrative

import (
	"github.com/Skufu/labinterpreter/internal/knowledge"
	"github.com/Skufu/labinterpreter/internal/labs"
)

// Level is the overall urgency of a result set: Baja < Media < Alta < Crítica.
type Level string

const (
	LevelLow      Level = "Baja"
	LevelMedium   Level = "Media"
	LevelHigh     Level = "Alta"
	LevelCritical Level = "Crítica"
)

var levelMessages = map[Level]string{
	LevelLow:      "Los resultados están dentro de parámetros normales o con desviaciones menores",
	LevelMedium:   "Se observan algunos valores fuera del rango normal que requieren seguimiento",
	LevelHigh:     "Se detectan valores significativamente anormales que requieren atención médica",
	LevelCritical: "Se detectan valores críticos que requieren atención médica inmediata",
}

// Message describes the level for the report urgency block.
func (l Level) Message() string {
	if msg, ok := levelMessages[l]; ok {
		return msg
	}
	return "Evaluación médica recomendada"
}

// TierLookup resolves the urgency tier of a test family.
type TierLookup interface {
	Tier(name string) knowledge.Tier
}

// Urgency scores the whole result set. Any abnormal value in a critical
// family makes it Crítica, otherwise any abnormal value in a high family makes
// it Alta; without tiered findings three or more abnormal values give Media.
func Urgency(values []labs.Value, tiers TierLookup) Level {
	var abnormal int
	var critical, high bool
	for _, v := range values {
		if !v.Status.Abnormal() {
			continue
		}
		abnormal++
		switch tiers.Tier(v.Name) {
		case knowledge.TierCritical:
			critical = true
		case knowledge.TierHigh:
			high = true
		}
	}

	switch {
	case critical:
		return LevelCritical
	case high:
		return LevelHigh
	case abnormal >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}

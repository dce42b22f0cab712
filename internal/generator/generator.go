// Package generator holds the text-generation backends that can write the
// clinical narrative: Gemini and OpenAI chat models behind one interface.
package generator

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TextGenerator turns a prompt into a reply. Replies are expected to be a
// JSON document in the narrative synthesis shape.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const promptTemplate = `Eres un médico especialista. Analiza estos resultados de laboratorio y responde ÚNICAMENTE en formato JSON válido.

PACIENTE: %s años, %s
%s
RESULTADOS:
%s

REGLAS ESTRICTAS:
1. Responde SOLO en formato JSON válido
2. NO incluyas texto explicativo fuera del JSON
3. NO uses markdown o formato de texto
4. Enfócate en hallazgos anormales o sospechosos
5. Sé conciso y preciso

FORMATO JSON REQUERIDO:
{
    "summary": "Resumen clínico en máximo 2 líneas",
    "suspicious_findings": [
        {"value": "nombre del valor", "result": "resultado específico", "concern": "ALTA/MEDIA/BAJA", "reason": "explicación breve del problema"}
    ],
    "normal_findings": ["valor1: normal", "valor2: normal"],
    "urgent_actions": ["acción urgente 1", "acción urgente 2"],
    "follow_up": ["seguimiento 1", "seguimiento 2"],
    "urgency_level": "BAJA/MEDIA/ALTA",
    "confidence": 0.8
}

IMPORTANTE: Responde SOLO con el JSON, sin texto adicional.
`

// BuildPrompt embeds the patient info and the laboratory text in the
// instruction sent to AI backends.
func BuildPrompt(patientInfo map[string]any, labText string) string {
	age := field(patientInfo, "age")
	gender := field(patientInfo, "gender")

	var extra strings.Builder
	keys := make([]string, 0, len(patientInfo))
	for k := range patientInfo {
		if k != "age" && k != "gender" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&extra, "%s: %s\n", k, field(patientInfo, k))
	}

	return fmt.Sprintf(promptTemplate, age, gender, extra.String(), strings.TrimSpace(labText))
}

func field(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return "N/A"
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "N/A"
	}
	return s
}

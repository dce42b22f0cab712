// Package report assembles the final interpretation response.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/Skufu/labinterpreter/internal/labs"
	"github.com/Skufu/labinterpreter/internal/narrative"
)

// ImportantNote is attached to every report.
const ImportantNote = "Esta interpretación es generada por IA y debe ser revisada por un profesional médico. " +
	"Los rangos de referencia pueden variar según el laboratorio y la población."

const (
	defaultConfidence = 0.8
	defaultSummary    = "Análisis de resultados de laboratorio completado"
)

// Row is one test line in the report.
type Row struct {
	TestName       string `json:"test_name"`
	Value          string `json:"value"`
	ReferenceRange string `json:"reference_range"`
	Status         string `json:"status"`
	Significance   string `json:"significance,omitempty"`
}

// Interpretation is the narrative block.
type Interpretation struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	ClinicalSignificance string   `json:"clinical_significance"`
	PossibleCauses       []string `json:"possible_causes"`
}

// Urgency is the level with its explanation.
type Urgency struct {
	Level   narrative.Level `json:"level"`
	Message string          `json:"message"`
}

// Data is the body of the report.
type Data struct {
	Summary            string         `json:"summary"`
	AnalysisConfidence string         `json:"analysis_confidence"`
	Interpretation     Interpretation `json:"interpretation"`
	NormalValues       []Row          `json:"normal_values"`
	AbnormalValues     []Row          `json:"abnormal_values"`
	UnreferencedValues []Row          `json:"unreferenced_values"`
	Alerts             []labs.Alert   `json:"alerts"`
	Recommendations    []string       `json:"recommendations"`
	Urgency            Urgency        `json:"urgency"`
	ImportantNote      string         `json:"important_note"`
}

// Report is the terminal response of an interpretation request.
type Report struct {
	Success     bool           `json:"success"`
	ReportID    string         `json:"report_id"`
	Data        Data           `json:"data"`
	PatientInfo map[string]any `json:"patient_info"`
	ModelUsed   string         `json:"model_used"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Rules is the part of the knowledge base the assembler reads.
type Rules interface {
	narrative.Rules
	RangeText(name string) string
	Significance(name, status string) string
}

// Input carries everything the assembler combines.
type Input struct {
	ID          string
	Values      []labs.Value
	Alerts      []labs.Alert
	Synthesis   narrative.Synthesis
	PatientInfo map[string]any
	ModelUsed   string
	Now         time.Time
}

// Assemble builds the report. It never fails: missing synthesis fields fall
// back to neutral defaults.
func Assemble(in Input, rules Rules) *Report {
	data := Data{
		Summary:            in.Synthesis.Summary,
		AnalysisConfidence: confidence(in.Synthesis.Confidence),
		NormalValues:       []Row{},
		AbnormalValues:     []Row{},
		UnreferencedValues: []Row{},
		Alerts:             in.Alerts,
		Recommendations:    []string{},
		ImportantNote:      ImportantNote,
	}
	if data.Summary == "" {
		data.Summary = defaultSummary
	}
	if data.Alerts == nil {
		data.Alerts = []labs.Alert{}
	}

	var abnormal int
	for _, v := range in.Values {
		row := Row{
			TestName:       v.Title,
			Value:          v.Display,
			ReferenceRange: rules.RangeText(v.Name),
			Status:         string(v.Status),
		}
		switch v.Status {
		case labs.StatusNormal:
			data.NormalValues = append(data.NormalValues, row)
		case labs.StatusUnknown:
			data.UnreferencedValues = append(data.UnreferencedValues, row)
		default:
			abnormal++
			row.Significance = rules.Significance(v.Name, string(v.Status))
			data.AbnormalValues = append(data.AbnormalValues, row)
		}
	}

	level := narrative.Urgency(in.Values, rules)
	data.Urgency = Urgency{Level: level, Message: level.Message()}
	data.Interpretation = Interpretation{
		Title:                narrative.Title(level, abnormal),
		Description:          data.Summary,
		ClinicalSignificance: narrative.ClinicalSignificance(abnormal),
		PossibleCauses:       narrative.PossibleCauses(in.Values, rules),
	}
	data.Recommendations = append(data.Recommendations, in.Synthesis.UrgentActions...)
	data.Recommendations = append(data.Recommendations, in.Synthesis.FollowUp...)

	patient := in.PatientInfo
	if patient == nil {
		patient = map[string]any{}
	}

	return &Report{
		Success:     true,
		ReportID:    in.ID,
		Data:        data,
		PatientInfo: patient,
		ModelUsed:   in.ModelUsed,
		Timestamp:   in.Now,
	}
}

func confidence(c float64) string {
	if c <= 0 || c > 1 {
		c = defaultConfidence
	}
	return fmt.Sprintf("%d%%", int(math.Round(c*100)))
}

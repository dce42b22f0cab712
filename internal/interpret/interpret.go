// Package interpret runs the laboratory interpretation pipeline: text
// extraction, classification, narrative synthesis and report assembly.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Skufu/labinterpreter/internal/generator"
	"github.com/Skufu/labinterpreter/internal/knowledge"
	"github.com/Skufu/labinterpreter/internal/labs"
	"github.com/Skufu/labinterpreter/internal/narrative"
	"github.com/Skufu/labinterpreter/internal/report"
)

// ModelRuleBased labels reports when no AI backend is configured.
const ModelRuleBased = "rule-based"

const defaultAITimeout = 90 * time.Second

var (
	ErrMissingContent = errors.New("html content is required")
	ErrNoMeasurements = errors.New("no laboratory values could be extracted")
	ErrSynthesis      = errors.New("narrative synthesis failed")
)

// IsBadRequest reports whether err was caused by the caller's input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrMissingContent) || errors.Is(err, ErrNoMeasurements)
}

// Request is the body of an interpretation call. A nil HTMLContent means the
// field was absent.
type Request struct {
	HTMLContent *string        `json:"html_content"`
	PatientInfo map[string]any `json:"patient_info"`
}

// Options is the explicit configuration of a Service.
type Options struct {
	// Generator is the AI backend. When nil the rule-based narrative is used.
	Generator generator.TextGenerator
	// ModelUsed is the label stamped on every report.
	ModelUsed string
	AITimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// Service interprets laboratory reports. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	kb   *knowledge.Base
	opts Options
	log  zerolog.Logger
}

// New builds a Service over the knowledge base.
func New(kb *knowledge.Base, opts Options, logger zerolog.Logger) *Service {
	if opts.ModelUsed == "" {
		opts.ModelUsed = ModelRuleBased
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = defaultAITimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{kb: kb, opts: opts, log: logger}
}

// Interpret runs the pipeline over one request.
func (s *Service) Interpret(ctx context.Context, req Request) (*report.Report, error) {
	if req.HTMLContent == nil {
		return nil, ErrMissingContent
	}

	text := labs.PlainText(*req.HTMLContent)
	patient := req.PatientInfo
	if patient == nil {
		patient = labs.DerivePatientInfo(text)
	}

	s.log.Info().Interface("age", ageOf(patient)).Msg("interpreting laboratory results")

	measurements := labs.ExtractKnown(text, s.kb)
	if len(measurements) == 0 {
		return nil, ErrNoMeasurements
	}

	values, alerts := labs.Classify(measurements, s.kb)

	synthesis, err := s.synthesize(ctx, text, patient, values)
	if err != nil {
		return nil, err
	}

	r := report.Assemble(report.Input{
		ID:          s.opts.NewID(),
		Values:      values,
		Alerts:      alerts,
		Synthesis:   synthesis,
		PatientInfo: patient,
		ModelUsed:   s.opts.ModelUsed,
		Now:         s.opts.Now(),
	}, s.kb)

	s.log.Info().
		Str("report_id", r.ReportID).
		Int("values", len(values)).
		Int("abnormal", len(r.Data.AbnormalValues)).
		Msg("interpretation completed")
	return r, nil
}

// synthesize asks the AI backend first, when one is configured, and falls
// back to the rule-based narrative on any failure.
func (s *Service) synthesize(ctx context.Context, text string, patient map[string]any, values []labs.Value) (narrative.Synthesis, error) {
	if s.opts.Generator != nil {
		syn, err := s.generate(ctx, s.opts.Generator, generator.BuildPrompt(patient, text))
		if err == nil {
			return syn, nil
		}
		s.log.Warn().Err(err).Msg("ai synthesis failed, using rule-based narrative")
	}

	var rules generator.TextGenerator = narrative.RuleGenerator{Values: values, Rules: s.kb}
	syn, err := s.generate(ctx, rules, "")
	if err != nil {
		s.log.Error().Err(err).Msg("rule-based synthesis failed")
		return narrative.Synthesis{}, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return syn, nil
}

func (s *Service) generate(ctx context.Context, gen generator.TextGenerator, prompt string) (narrative.Synthesis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.AITimeout)
	defer cancel()

	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		return narrative.Synthesis{}, err
	}
	return narrative.Decode(raw)
}

// Ranges exposes the reference table.
func (s *Service) Ranges() map[string]knowledge.Range {
	return s.kb.Ranges()
}

// ModelUsed is the label stamped on reports.
func (s *Service) ModelUsed() string {
	return s.opts.ModelUsed
}

func ageOf(patient map[string]any) any {
	if v, ok := patient["age"]; ok && v != nil {
		return v
	}
	return "N/A"
}

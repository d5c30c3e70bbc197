package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	llmx "github.com/tanpawarit/clinical-intake-orchestrator/agent/llm"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
)

const (
	graphExtract  = "medical_extract"
	graphDiagnose = "medical_diagnose"
)

type Option func(*Toolset)

func WithRetryPolicy(p llmx.RetryPolicy) Option {
	return func(t *Toolset) { t.retry = p }
}

func WithGenderInferrer(g medicalx.GenderInferrer) Option {
	return func(t *Toolset) {
		if g != nil {
			t.genders = g
		}
	}
}

// Toolset runs the extraction and diagnosis model calls and the local
// validation check.
type Toolset struct {
	extract  compose.Runnable[map[string]any, medicalx.MedicalExtraction]
	diagnose compose.Runnable[map[string]any, medicalx.DiagnosisResult]
	genders  medicalx.GenderInferrer
	retry    llmx.RetryPolicy
}

var _ contractx.ToolSet = (*Toolset)(nil)

func NewToolset(
	ctx context.Context,
	extractModel einomodel.BaseChatModel,
	diagnoseModel einomodel.BaseChatModel,
	extractPrompt string,
	diagnosePrompt string,
	opts ...Option,
) (*Toolset, error) {
	if extractModel == nil || diagnoseModel == nil {
		return nil, fmt.Errorf("%w: tool models are required", contractx.ErrValidation)
	}

	extract, err := llmx.CompileStructuredGraph[medicalx.MedicalExtraction](ctx, extractModel, extractPrompt, graphExtract)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrPromptMissing, err)
	}
	diagnose, err := llmx.CompileStructuredGraph[medicalx.DiagnosisResult](ctx, diagnoseModel, diagnosePrompt, graphDiagnose)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrPromptMissing, err)
	}

	t := &Toolset{
		extract:  extract,
		diagnose: diagnose,
		genders:  medicalx.DefaultNameTable(),
		retry:    llmx.RetryPolicy{Retries: 1, Backoff: 500 * time.Millisecond},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

func (t *Toolset) Extract(ctx context.Context, text string) (medicalx.MedicalExtraction, error) {
	op := string(contractx.ToolExtract)
	text = strings.TrimSpace(text)
	if text == "" {
		return medicalx.MedicalExtraction{}, contractx.OpError(op, fmt.Errorf("%w: text is empty", contractx.ErrValidation))
	}

	started := time.Now()
	raw, err := llmx.Retry(ctx, t.retry, op, func(ctx context.Context) (medicalx.MedicalExtraction, error) {
		return t.extract.Invoke(ctx, map[string]any{"input": text})
	})
	if err != nil {
		return medicalx.MedicalExtraction{}, contractx.OpError(op, serviceError(ctx, err))
	}

	out := medicalx.Normalize(raw, t.genders)
	log.Debug().
		Str("tool", op).
		Int("symptoms", len(out.Symptoms)).
		Dur("latency", time.Since(started)).
		Msg("medical information extracted")
	return out, nil
}

func (t *Toolset) Diagnose(ctx context.Context, extraction medicalx.MedicalExtraction) (medicalx.DiagnosisResult, error) {
	op := string(contractx.ToolDiagnose)
	extraction.Symptoms = medicalx.NormalizeSymptoms(extraction.Symptoms)
	if len(extraction.Symptoms) == 0 {
		return medicalx.DiagnosisResult{}, contractx.OpError(op, fmt.Errorf("%w: at least one symptom is required", contractx.ErrValidation))
	}

	payload, err := json.Marshal(extraction)
	if err != nil {
		return medicalx.DiagnosisResult{}, contractx.OpError(op, fmt.Errorf("%w: encode extraction: %w", contractx.ErrValidation, err))
	}

	started := time.Now()
	out, err := llmx.Retry(ctx, t.retry, op, func(ctx context.Context) (medicalx.DiagnosisResult, error) {
		return t.diagnose.Invoke(ctx, map[string]any{"input": string(payload)})
	})
	if err != nil {
		return medicalx.DiagnosisResult{}, contractx.OpError(op, serviceError(ctx, err))
	}
	if out.IsEmpty() {
		return medicalx.DiagnosisResult{}, contractx.OpError(op, fmt.Errorf("%w: diagnosis is empty", contractx.ErrSchemaViolation))
	}

	log.Debug().Str("tool", op).Dur("latency", time.Since(started)).Msg("diagnosis generated")
	return out, nil
}

func (t *Toolset) Validate(extraction medicalx.MedicalExtraction) medicalx.ValidationReport {
	return medicalx.Validate(extraction)
}

// serviceError classifies a failed model call. Cancellation is passed
// through untouched so callers can tell it apart from an outage.
func serviceError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", contractx.ErrExternalService, err)
}

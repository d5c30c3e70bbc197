package contract

import (
	"context"

	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
)

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error)
}

type MedicalAgent interface {
	Respond(ctx context.Context, req MedicalRequest) (MedicalResponse, error)
}

type OffTopicResponder interface {
	Respond(message string) OffTopicResponse
}

type ToolSet interface {
	Extract(ctx context.Context, text string) (medicalx.MedicalExtraction, error)
	Diagnose(ctx context.Context, extraction medicalx.MedicalExtraction) (medicalx.DiagnosisResult, error)
	Validate(extraction medicalx.MedicalExtraction) medicalx.ValidationReport
}

type ToolGateway interface {
	Execute(ctx context.Context, req ToolRequest) (ToolResult, error)
}

// Transcriber turns audio into text that is then handled like any chat message.
type Transcriber interface {
	TranscribeURL(ctx context.Context, audioURL string) (string, error)
	TranscribeFile(ctx context.Context, path string) (string, error)
}

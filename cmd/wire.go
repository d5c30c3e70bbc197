package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/clinical-intake-orchestrator/agent/agents/supervisor"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	llmx "github.com/tanpawarit/clinical-intake-orchestrator/agent/llm"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
	configx "github.com/tanpawarit/clinical-intake-orchestrator/pkg/config"
	"github.com/tanpawarit/clinical-intake-orchestrator/pkg/transcribe"
)

// service is the part of the supervisor the commands drive.
type service interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (contractx.ChatResponse, error)
	HandleAudio(ctx context.Context, sessionID string, audioURL string) (contractx.ChatResponse, error)
	HandleAudioFile(ctx context.Context, sessionID string, path string) (contractx.ChatResponse, error)
	Extract(ctx context.Context, text string) (medicalx.MedicalExtraction, error)
	Diagnose(ctx context.Context, extraction medicalx.MedicalExtraction) (medicalx.DiagnosisResult, error)
	Validate(extraction medicalx.MedicalExtraction) medicalx.ValidationReport
	ListSessions(ctx context.Context) (map[string]statex.Summary, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	Status(ctx context.Context) (contractx.SystemStatus, error)
}

var _ service = (*supervisor.Supervisor)(nil)

type app struct {
	service service

	// audio is nil when no transcription key is configured.
	audio contractx.Transcriber
}

type appFactory func(ctx context.Context) (*app, error)

type appLoader func(cmd *cobra.Command) (*app, error)

// lazyApp defers wiring until a command runs, so --env is applied first
// and --help works without credentials.
func lazyApp(factory appFactory) appLoader {
	var (
		once sync.Once
		a    *app
		err  error
	)
	return func(cmd *cobra.Command) (*app, error) {
		once.Do(func() {
			a, err = factory(cmd.Context())
		})
		return a, err
	}
}

func wireApp(ctx context.Context) (*app, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	appCfg, err := configx.New[supervisor.Config]("APP")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	audioCfg, err := configx.New[transcribe.Config]("TRANSCRIBE")
	if err != nil {
		return nil, fmt.Errorf("load transcribe config: %w", err)
	}

	var audio contractx.Transcriber
	client, err := transcribe.NewClient(*audioCfg)
	switch {
	case err == nil:
		audio = client
	case errors.Is(err, transcribe.ErrDisabled):
		log.Debug().Msg("audio transcription disabled")
	default:
		return nil, fmt.Errorf("wire transcription client: %w", err)
	}

	sup, err := supervisor.Build(ctx, *llmCfg, *appCfg, audio)
	if err != nil {
		return nil, fmt.Errorf("wire supervisor: %w", err)
	}
	return &app{service: sup, audio: audio}, nil
}

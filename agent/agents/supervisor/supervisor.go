package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
	nodex "github.com/tanpawarit/clinical-intake-orchestrator/agent/nodes"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
	logx "github.com/tanpawarit/clinical-intake-orchestrator/pkg/logger"
)

var (
	ErrInvalidMessage     = nodex.ErrInvalidMessage
	ErrInvalidSession     = nodex.ErrInvalidSession
	ErrAudioNotConfigured = errors.New("audio transcription is not configured")
)

const StatusRunning = "running"

// Operations lists what the supervisor exposes, as reported by Status.
var Operations = []string{"chat", "extract", "diagnose", "validate", "sessions", "delete_session", "status"}

// Dependencies are the collaborators the supervisor routes between.
type Dependencies struct {
	Store      statex.Store
	Classifier contractx.Classifier
	Medical    contractx.MedicalAgent
	OffTopic   contractx.OffTopicResponder
	Tools      contractx.ToolSet
	ModelName  string

	// Transcriber is optional; without it HandleAudio is unavailable.
	Transcriber contractx.Transcriber
}

type Supervisor struct {
	store      statex.Store
	classifier contractx.Classifier
	medical    contractx.MedicalAgent
	offTopic   contractx.OffTopicResponder
	tools      contractx.ToolSet
	audio      contractx.Transcriber
	modelName  string
	cfg        Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(deps Dependencies, cfg Config) (*Supervisor, error) {
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if deps.Medical == nil {
		return nil, errors.New("medical agent is required")
	}
	if deps.OffTopic == nil {
		return nil, errors.New("off-topic handler is required")
	}
	if deps.Tools == nil {
		return nil, errors.New("tool set is required")
	}

	cfg = cfg.withDefaults()
	s := &Supervisor{
		store:      deps.Store,
		classifier: newMemoClassifier(deps.Classifier, cfg.ClassifierCacheSize),
		medical:    deps.Medical,
		offTopic:   deps.OffTopic,
		tools:      deps.Tools,
		audio:      deps.Transcriber,
		modelName:  strings.TrimSpace(deps.ModelName),
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}

	graphRunner, err := s.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner
	return s, nil
}

// HandleMessage runs one chat turn. An empty session id starts a new
// session under a generated id; an unknown non-empty id starts a new session
// under that id and the response reports NewSession. Turns on one session
// never interleave. A first turn that fails leaves no session behind.
func (s *Supervisor) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.ChatResponse, error) {
	if strings.TrimSpace(text) == "" {
		return contractx.ChatResponse{}, ErrInvalidMessage
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = s.newID()
	}

	unlock, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return contractx.ChatResponse{}, err
	}
	defer unlock()

	log.Debug().Str("session_id", sessionID).Str("message", logx.Preview(text, 80)).Msg("handling message")

	_, getErr := s.store.Get(ctx, sessionID)
	existed := getErr == nil

	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		if !existed {
			s.discardSession(ctx, sessionID)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contractx.ChatResponse{}, ctxErr
		}
		return contractx.ChatResponse{}, err
	}
	if out.Degraded {
		log.Warn().Str("session_id", sessionID).Strs("errors", out.Errors).Msg("turn answered in degraded mode")
	}
	return out, nil
}

// discardSession drops a session created by a turn that never completed.
// The caller holds the session lock.
func (s *Supervisor) discardSession(ctx context.Context, sessionID string) {
	cleanup := context.WithoutCancel(ctx)
	st, err := s.store.Get(cleanup, sessionID)
	if err != nil || len(st.Turns) > 0 {
		return
	}
	if _, err := s.store.Delete(cleanup, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("could not discard abandoned session")
	}
}

// HandleAudio transcribes the audio at audioURL and handles the text as a
// normal chat message.
func (s *Supervisor) HandleAudio(ctx context.Context, sessionID string, audioURL string) (contractx.ChatResponse, error) {
	return s.handleTranscript(ctx, sessionID, func(ctx context.Context) (string, error) {
		return s.audio.TranscribeURL(ctx, audioURL)
	})
}

// HandleAudioFile is HandleAudio for a local audio file.
func (s *Supervisor) HandleAudioFile(ctx context.Context, sessionID string, path string) (contractx.ChatResponse, error) {
	return s.handleTranscript(ctx, sessionID, func(ctx context.Context) (string, error) {
		return s.audio.TranscribeFile(ctx, path)
	})
}

func (s *Supervisor) handleTranscript(
	ctx context.Context,
	sessionID string,
	transcribe func(context.Context) (string, error),
) (contractx.ChatResponse, error) {
	if s.audio == nil {
		return contractx.ChatResponse{}, ErrAudioNotConfigured
	}
	text, err := transcribe(ctx)
	if err != nil {
		return contractx.ChatResponse{}, contractx.OpError("transcribe", err)
	}
	log.Info().Str("session_id", sessionID).Int("chars", len(text)).Msg("audio transcribed")
	return s.HandleMessage(ctx, sessionID, text)
}

func (s *Supervisor) Session(ctx context.Context, sessionID string) (*statex.Session, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *Supervisor) Extract(ctx context.Context, text string) (medicalx.MedicalExtraction, error) {
	return s.tools.Extract(ctx, text)
}

func (s *Supervisor) Diagnose(ctx context.Context, extraction medicalx.MedicalExtraction) (medicalx.DiagnosisResult, error) {
	return s.tools.Diagnose(ctx, extraction)
}

func (s *Supervisor) Validate(extraction medicalx.MedicalExtraction) medicalx.ValidationReport {
	return s.tools.Validate(extraction)
}

func (s *Supervisor) ListSessions(ctx context.Context) (map[string]statex.Summary, error) {
	return s.store.List(ctx)
}

// DeleteSession reports false without side effects for an unknown id. It
// waits for an in-flight turn on the same session to finish.
func (s *Supervisor) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	unlock, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return false, err
	}
	defer unlock()
	return s.store.Delete(ctx, sessionID)
}

func (s *Supervisor) Status(ctx context.Context) (contractx.SystemStatus, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return contractx.SystemStatus{}, fmt.Errorf("count sessions: %w", err)
	}
	ops := make([]string, 0, len(Operations)+1)
	ops = append(ops, Operations...)
	if s.audio != nil {
		ops = append(ops, "transcribe")
	}
	return contractx.SystemStatus{
		Status:         StatusRunning,
		Model:          s.modelName,
		ActiveSessions: n,
		Operations:     ops,
		Timestamp:      s.now().UTC(),
	}, nil
}

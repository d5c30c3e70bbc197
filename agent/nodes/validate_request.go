package supervisornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	statex "github.com/tanpawarit/clinical-intake-orchestrator/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = statex.ErrInvalidSession
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput = contractx.ChatResponse

// GraphState travels through every node of one chat turn.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session    *statex.Session
	NewSession bool
	History    []statex.Turn

	Route       contractx.Route
	RouteReason string

	Agent        contractx.AgentType
	Reply        string
	ToolsInvoked []contractx.ToolKind
	Degraded     bool
	Errors       []error
	TurnCount    int
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}

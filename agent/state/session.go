package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrInvalidTurn     = errors.New("turn is incomplete")
)

// Session is one conversation. Turns are append-only.
type Session struct {
	ID           string    `json:"session_id"`
	Turns        []Turn    `json:"turns"`
	LastAgent    string    `json:"last_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Turn struct {
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Agent     string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the cheap view returned by List; it never carries turn content.
type Summary struct {
	LastAgent    string    `json:"agent_used,omitempty"`
	TurnCount    int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Turns:        make([]Turn, 0, 8),
		CreatedAt:    now.UTC(),
		LastActivity: now.UTC(),
	}
}

func (t Turn) Validate() error {
	if strings.TrimSpace(t.Input) == "" {
		return fmt.Errorf("%w: input is empty", ErrInvalidTurn)
	}
	if strings.TrimSpace(t.Agent) == "" {
		return fmt.Errorf("%w: agent is empty", ErrInvalidTurn)
	}
	return nil
}

func (s *Session) Summary() Summary {
	return Summary{
		LastAgent:    s.LastAgent,
		TurnCount:    len(s.Turns),
		LastActivity: s.LastActivity,
	}
}

// Recent returns up to n most recent turns, oldest first.
func (s *Session) Recent(n int) []Turn {
	if s == nil || n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	start := len(s.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.Turns)-start)
	copy(out, s.Turns[start:])
	return out
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Turns = make([]Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	return &out
}

func (s *Session) append(t Turn) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	t.Timestamp = t.Timestamp.UTC()
	s.Turns = append(s.Turns, t)
	s.LastAgent = t.Agent
	if t.Timestamp.After(s.LastActivity) {
		s.LastActivity = t.Timestamp
	}
}

package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is the session persistence contract used by the supervisor.
// Returned sessions are snapshots; all mutation goes through Append.
type Store interface {
	GetOrCreate(ctx context.Context, sessionID string) (*Session, bool, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Append(ctx context.Context, sessionID string, turn Turn) error
	Delete(ctx context.Context, sessionID string) (bool, error)
	List(ctx context.Context) (map[string]Summary, error)
	Count(ctx context.Context) (int, error)

	// Lock serializes turns for one session. Other sessions are unaffected.
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	turns keyedLock
	now   func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*sessionEntry, 16),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string) (*Session, bool, error) {
	id, err := sessionKey(sessionID)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if e := s.entry(id); e != nil {
		return e.snapshot(), false, nil
	}

	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		e = &sessionEntry{session: NewSession(id, s.now())}
		s.sessions[id] = e
	}
	s.mu.Unlock()

	if !ok {
		log.Debug().Str("session_id", id).Msg("session created")
	}
	return e.snapshot(), !ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	id, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := s.entry(id)
	if e == nil {
		return nil, ErrSessionNotFound
	}
	return e.snapshot(), nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	id, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	if err := turn.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := s.entry(id)
	if e == nil {
		return ErrSessionNotFound
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.append(turn)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	id, err := sessionKey(sessionID)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		log.Info().Str("session_id", id).Msg("session deleted")
	}
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) (map[string]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make(map[string]*sessionEntry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	s.mu.RUnlock()

	out := make(map[string]Summary, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		out[id] = e.session.Summary()
		e.mu.Unlock()
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *MemoryStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	id, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	return s.turns.acquire(ctx, id)
}

func (s *MemoryStore) entry(id string) *sessionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (e *sessionEntry) snapshot() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

func sessionKey(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	return id, nil
}

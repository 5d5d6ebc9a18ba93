package sessionstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/Armoredbrain/RoBoTo/bot"
)

// InMem is a Store for tests and local development. Sessions are deep-copied
// on the way in and out so callers never share memory with the store.
type InMem struct {
	mu       sync.Mutex
	sessions map[string]*bot.Session
}

func NewInMem() *InMem {
	return &InMem{sessions: make(map[string]*bot.Session)}
}

func (s *InMem) Create(_ context.Context, session *bot.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

func (s *InMem) Get(_ context.Context, id string) (*bot.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(session), nil
}

func (s *InMem) Save(_ context.Context, session *bot.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

func (s *InMem) Claim(_ context.Context, id string) (*bot.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if session.Status != bot.StatusAvailable {
		return nil, ErrUnavailable
	}
	session.Status = bot.StatusBusy
	return copySession(session), nil
}

func (s *InMem) SetStatus(_ context.Context, id string, status bot.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	session.Status = status
	return nil
}

// copySession round-trips through JSON, which also mimics what a trip
// through Mongo does to untyped variable values.
func copySession(session *bot.Session) *bot.Session {
	raw, err := json.Marshal(session)
	if err != nil {
		panic(err)
	}
	var copied bot.Session
	if err := json.Unmarshal(raw, &copied); err != nil {
		panic(err)
	}
	return &copied
}

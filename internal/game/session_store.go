// internal/game/session_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
	log "github.com/sirupsen/logrus"
)

// SessionRegistry resolves session ids. Absence is reported with false, never a panic.
type SessionRegistry interface {
	GetSession(id uuid.UUID) (*Session, bool)
}

// SessionStore manages sessions in memory.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore returns an empty in-memory store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create builds a session for hostID and stores it. The host is seated first.
func (s *SessionStore) Create(host *models.Player, rules models.Ruleset) *Session {
	sess := NewSession(host.UserID, rules)
	_ = sess.AddPlayer(host)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	log.WithField("session", sess.ID).Debug("session created")
	return sess
}

// Add stores an existing session, e.g. one restored by a caller. An existing id is not overwritten.
func (s *SessionStore) Add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		log.Warnf("SessionStore: session %s already exists", sess.ID)
		return
	}
	s.sessions[sess.ID] = sess
}

// GetSession retrieves a session if it exists.
func (s *SessionStore) GetSession(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes the session from memory.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// List returns a copy of all sessions, so callers can iterate without holding the store lock.
func (s *SessionStore) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

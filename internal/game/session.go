// internal/game/session.go
package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
)

var (
	ErrJoinLocked    = errors.New("session no longer accepts players")
	ErrAlreadyJoined = errors.New("player already in session")
)

// SessionState is the lifecycle phase of a session.
type SessionState int

const (
	StateForming SessionState = iota
	StateInProgress
)

func (s SessionState) String() string {
	if s == StateInProgress {
		return "in_progress"
	}
	return "forming"
}

// Session is one game instance: the seated players, their hands, the draw deck
// and the discard pile. All fields are guarded by mu; the Engine takes the lock
// for every mutation so operations on one session are serialized while other
// sessions proceed independently.
type Session struct {
	ID         uuid.UUID      `json:"id"`
	HostUserID uuid.UUID      `json:"hostUserID"`
	Ruleset    models.Ruleset `json:"ruleset"`
	CreatedAt  time.Time      `json:"createdAt"`

	mu         sync.Mutex
	players    []*models.Player
	joinLocked bool
	deck       []models.Card
	discard    []models.Card
	current    int
}

// NewSession creates a forming session hosted by hostID.
func NewSession(hostID uuid.UUID, rules models.Ruleset) *Session {
	id, _ := uuid.NewV7()
	return &Session{
		ID:         id,
		HostUserID: hostID,
		Ruleset:    rules,
		CreatedAt:  time.Now(),
	}
}

// AddPlayer seats a player at the end of the rotation.
func (s *Session) AddPlayer(p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.joinLocked {
		return ErrJoinLocked
	}
	for _, existing := range s.players {
		if existing.UserID == p.UserID {
			return ErrAlreadyJoined
		}
	}
	if p.Hand == nil {
		p.Hand = []models.Card{}
	}
	s.players = append(s.players, p)
	return nil
}

// State reports whether the session is still forming or already in progress.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joinLocked {
		return StateInProgress
	}
	return StateForming
}

// JoinLocked is true once the game has started.
func (s *Session) JoinLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinLocked
}

// DeckSize returns the number of cards left to draw.
func (s *Session) DeckSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deck)
}

// CardCount returns the number of cards across deck, hands and discard pile.
func (s *Session) CardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.deck) + len(s.discard)
	for _, p := range s.players {
		n += len(p.Hand)
	}
	return n
}

// PlayerCount returns the number of seated players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// Players returns public views of the seated players in seating order.
func (s *Session) Players() []models.PlayerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]models.PlayerView, 0, len(s.players))
	for i, p := range s.players {
		views = append(views, models.PlayerView{
			UserID:    p.UserID,
			Username:  p.Username,
			CardCount: len(p.Hand),
			IsTurn:    s.joinLocked && i == s.current,
		})
	}
	return views
}

// HasPlayer reports whether userID is seated in the session.
func (s *Session) HasPlayer(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerIndex(userID) >= 0
}

// Hand returns a copy of the player's hand, or false if the user is not seated.
func (s *Session) Hand(userID uuid.UUID) ([]models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.playerIndex(userID)
	if idx < 0 {
		return nil, false
	}
	hand := make([]models.Card, len(s.players[idx].Hand))
	copy(hand, s.players[idx].Hand)
	return hand, true
}

// CurrentCard returns the top of the discard pile, if any.
func (s *Session) CurrentCard() (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.discard) == 0 {
		return models.Card{}, false
	}
	return s.discard[len(s.discard)-1], true
}

// CurrentPlayer returns the user whose turn it is. It is uuid.Nil before the game starts.
func (s *Session) CurrentPlayer() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.joinLocked || len(s.players) == 0 {
		return uuid.Nil
	}
	return s.players[s.current].UserID
}

// playerIndex assumes the lock is held.
func (s *Session) playerIndex(userID uuid.UUID) int {
	for i, p := range s.players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

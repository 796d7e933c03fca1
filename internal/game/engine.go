// internal/game/engine.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
)

// MinPlayers is the smallest roster a session can be started with.
const MinPlayers = 2

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrAlreadyStarted      = errors.New("game already started")
	ErrNotStarted          = errors.New("game has not started")
	ErrNotInSession        = errors.New("player is not in this session")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrCardNotInHand       = errors.New("card is not in hand")
	ErrCardNotPlayable     = errors.New("card does not match the current card")
	ErrInvalidRuleset      = errors.New("invalid ruleset")
)

// Engine applies state transitions to sessions. It owns the random source used
// for dealing so a fixed seed gives a reproducible deal.
type Engine struct {
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine returns an engine drawing from rng.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// NewSeededEngine is a convenience for NewEngine(rand.New(rand.NewSource(seed))).
func NewSeededEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)))
}

// Start locks the roster, builds a fresh deck and deals Ruleset.StartCardCount
// cards to every player, one card at a time in seating order.
//
// The deal runs on a working copy and is committed only once every hand is
// complete, so any error leaves the session exactly as it was.
func (e *Engine) Start(s *Session) error {
	if s == nil {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.joinLocked {
		return ErrAlreadyStarted
	}
	if len(s.players) < MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPlayers, len(s.players), MinPlayers)
	}

	k := s.Ruleset.StartCardCount
	if k < 0 {
		return fmt.Errorf("%w: start card count %d", ErrInvalidRuleset, k)
	}
	// checked by division so huge counts cannot overflow
	if k > DeckSize/len(s.players) {
		return fmt.Errorf("dealing %d cards to %d players: %w", k, len(s.players), ErrEmptyDeck)
	}

	deck := BuildDeck()
	hands := make([][]models.Card, len(s.players))
	for i := range hands {
		hands[i] = make([]models.Card, 0, min(k, DeckSize))
	}

	e.rngMu.Lock()
	for round := 0; round < k; round++ {
		for i := range s.players {
			card, err := takeRandomCard(e.rng, &deck)
			if err != nil {
				e.rngMu.Unlock()
				return fmt.Errorf("dealing round %d: %w", round+1, err)
			}
			hands[i] = append(hands[i], card)
		}
	}
	e.rngMu.Unlock()

	s.joinLocked = true
	s.deck = deck
	s.discard = []models.Card{}
	s.current = 0
	for i, p := range s.players {
		p.Hand = hands[i]
	}
	return nil
}

// TakeRandomCard removes a uniformly chosen card from the session deck.
func (e *Engine) TakeRandomCard(s *Session) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.takeLocked(s)
}

// takeLocked assumes the session lock is held.
func (e *Engine) takeLocked(s *Session) (models.Card, error) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return takeRandomCard(e.rng, &s.deck)
}

// Draw gives the current player one card from the deck. Drawing does not end the turn.
func (e *Engine) Draw(s *Session, userID uuid.UUID) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.currentTurnLocked(userID)
	if err != nil {
		return models.Card{}, err
	}

	card, err := e.takeLocked(s)
	if err != nil {
		return models.Card{}, err
	}
	p.Hand = append(p.Hand, card)
	return card, nil
}

// Play moves a card from the current player's hand onto the discard pile and
// passes the turn to the next seat. It returns the user whose turn it is now.
func (e *Engine) Play(s *Session, userID uuid.UUID, cardID int) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.currentTurnLocked(userID)
	if err != nil {
		return uuid.Nil, err
	}

	idx := -1
	for i, c := range p.Hand {
		if c.ID == cardID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return uuid.Nil, ErrCardNotInHand
	}

	card := p.Hand[idx]
	if len(s.discard) > 0 && !Playable(card, s.discard[len(s.discard)-1]) {
		return uuid.Nil, ErrCardNotPlayable
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	s.discard = append(s.discard, card)
	s.current = (s.current + 1) % len(s.players)

	return s.players[s.current].UserID, nil
}

// Playable reports whether card may be laid on top.
func Playable(card, top models.Card) bool {
	switch {
	case card.Kind.IsWild(), top.Kind.IsWild():
		return true
	case card.Color == top.Color:
		return true
	case card.Kind == models.KindNumber:
		return top.Kind == models.KindNumber && card.Number == top.Number
	default:
		return card.Kind == top.Kind
	}
}

// currentTurnLocked assumes the lock is held.
func (s *Session) currentTurnLocked(userID uuid.UUID) (*models.Player, error) {
	if !s.joinLocked {
		return nil, ErrNotStarted
	}
	idx := s.playerIndex(userID)
	if idx < 0 {
		return nil, ErrNotInSession
	}
	if idx != s.current {
		return nil, ErrNotYourTurn
	}
	return s.players[idx], nil
}

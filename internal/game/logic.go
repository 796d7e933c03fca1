// internal/game/logic.go
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
	log "github.com/sirupsen/logrus"
)

// Logic is the entry point the API layer talks to. It resolves sessions through
// the registry, delegates state changes to the Engine and pushes the resulting
// events to clients.
type Logic struct {
	registry SessionRegistry
	engine   *Engine
	notifier Notifier
	recorder ActionRecorder

	// recordMu orders index allocation with the enqueue so each session's
	// records reach the recorder in index order.
	recordMu  sync.Mutex
	actionSeq map[uuid.UUID]int64
	records   chan ActionRecord
	closed    bool
	published chan struct{}
}

const recordQueueSize = 256

// NewLogic wires the orchestrator. A nil notifier or recorder disables that side effect.
func NewLogic(registry SessionRegistry, engine *Engine, notifier Notifier, recorder ActionRecorder) *Logic {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	l := &Logic{
		registry:  registry,
		engine:    engine,
		notifier:  notifier,
		recorder:  recorder,
		actionSeq: make(map[uuid.UUID]int64),
		records:   make(chan ActionRecord, recordQueueSize),
		published: make(chan struct{}),
	}
	go l.publishActions()
	return l
}

// Close stops accepting action records and waits until the queued ones have
// been handed to the recorder or ctx is done.
func (l *Logic) Close(ctx context.Context) error {
	l.recordMu.Lock()
	if !l.closed {
		l.closed = true
		close(l.records)
	}
	l.recordMu.Unlock()

	select {
	case <-l.published:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartGame starts the session's game. It returns false when the session does
// not exist or cannot be started; the reason is only logged.
func (l *Logic) StartGame(ctx context.Context, sessionID uuid.UUID) bool {
	var sess *Session
	if s, ok := l.registry.GetSession(sessionID); ok {
		sess = s
	}

	if err := l.engine.Start(sess); err != nil {
		log.WithFields(log.Fields{
			"session": sessionID,
			"reason":  err,
		}).Info("game start rejected")
		return false
	}

	first := sess.CurrentPlayer()
	log.WithFields(log.Fields{
		"session": sessionID,
		"players": sess.PlayerCount(),
		"deck":    sess.DeckSize(),
	}).Info("game started")

	l.notifier.SendToSession(sessionID, EventGameStarted, nil)
	l.notifier.SendToUser(sessionID, first, EventMyTurn, nil)
	l.logAction(sessionID, uuid.Nil, "game_start", map[string]any{
		"players":  sess.PlayerCount(),
		"deckSize": sess.DeckSize(),
	})
	return true
}

// JoinSession seats p in a forming session and tells the session about the new roster.
func (l *Logic) JoinSession(ctx context.Context, sessionID uuid.UUID, p *models.Player) error {
	sess, ok := l.registry.GetSession(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if err := sess.AddPlayer(p); err != nil {
		return err
	}

	l.notifier.SendToSession(sessionID, EventPlayersChanged, sess.Players())
	l.logAction(sessionID, p.UserID, "join", map[string]any{"players": sess.PlayerCount()})
	return nil
}

// DrawCard draws one card for the current player.
func (l *Logic) DrawCard(ctx context.Context, sessionID, userID uuid.UUID) (models.Card, error) {
	sess, ok := l.registry.GetSession(sessionID)
	if !ok {
		return models.Card{}, ErrSessionNotFound
	}

	card, err := l.engine.Draw(sess, userID)
	if err != nil {
		if errors.Is(err, ErrEmptyDeck) {
			log.WithField("session", sessionID).Warn("draw attempted on empty deck")
		}
		return models.Card{}, err
	}

	l.notifier.SendToSession(sessionID, EventPlayersChanged, sess.Players())
	l.logAction(sessionID, userID, "draw", map[string]any{"deckSize": sess.DeckSize()})
	return card, nil
}

// PlayCard lays a card from the caller's hand and notifies the next player.
func (l *Logic) PlayCard(ctx context.Context, sessionID, userID uuid.UUID, cardID int) (models.Card, error) {
	sess, ok := l.registry.GetSession(sessionID)
	if !ok {
		return models.Card{}, ErrSessionNotFound
	}

	next, err := l.engine.Play(sess, userID, cardID)
	if err != nil {
		return models.Card{}, err
	}
	card, _ := sess.CurrentCard()

	l.notifier.SendToSession(sessionID, EventNewCurrentCard, NewCardView(card))
	l.notifier.SendToSession(sessionID, EventPlayersChanged, sess.Players())
	l.notifier.SendToUser(sessionID, next, EventMyTurn, nil)
	l.logAction(sessionID, userID, "play", map[string]any{
		"cardId":   card.ID,
		"card":     card.String(),
		"nextUser": next,
	})
	return card, nil
}

// Hand returns the caller's hand in display order.
func (l *Logic) Hand(sessionID, userID uuid.UUID) ([]models.Card, error) {
	sess, ok := l.registry.GetSession(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	hand, ok := sess.Hand(userID)
	if !ok {
		return nil, ErrNotInSession
	}
	return SortHand(hand), nil
}

// CurrentCard returns the top of the session's discard pile.
func (l *Logic) CurrentCard(sessionID uuid.UUID) (models.Card, bool, error) {
	sess, ok := l.registry.GetSession(sessionID)
	if !ok {
		return models.Card{}, false, ErrSessionNotFound
	}
	card, ok := sess.CurrentCard()
	return card, ok, nil
}

// logAction queues the record for the publisher without blocking the caller.
// Indices are per session and have no gaps; a record that does not fit in the
// queue is dropped before it is given an index.
func (l *Logic) logAction(sessionID, actorID uuid.UUID, actionType string, payload map[string]any) {
	rec := ActionRecord{
		SessionID:     sessionID,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}

	l.recordMu.Lock()
	defer l.recordMu.Unlock()
	if l.closed {
		return
	}
	rec.ActionIndex = l.actionSeq[sessionID] + 1
	select {
	case l.records <- rec:
		l.actionSeq[sessionID] = rec.ActionIndex
	default:
		log.Warnf("action queue full, dropping %s for session %s", actionType, sessionID)
	}
}

// publishActions hands records to the recorder one at a time, in queue order.
func (l *Logic) publishActions() {
	defer close(l.published)
	for rec := range l.records {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := l.recorder.Record(ctx, rec); err != nil {
			log.Warnf("failed to record action %d for session %s: %v", rec.ActionIndex, rec.SessionID, err)
		}
		cancel()
	}
}

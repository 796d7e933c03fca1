// internal/game/events.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
)

// Event names pushed to clients over the players hub.
const (
	EventNewCurrentCard = "newCurrentCard"
	EventMyTurn         = "myTurn"
	EventPlayersChanged = "playersChanged"
	EventGameStarted    = "gameStarted"
)

// Notifier pushes named events to the clients of a session.
type Notifier interface {
	SendToSession(sessionID uuid.UUID, event string, payload any)
	SendToUser(sessionID, userID uuid.UUID, event string, payload any)
}

// ActionRecord is one entry of a session's action history.
type ActionRecord struct {
	SessionID     uuid.UUID      `json:"session_id"`
	ActionIndex   int64          `json:"action_index"`
	ActorUserID   uuid.UUID      `json:"actor_user_id"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload"`
	Timestamp     int64          `json:"timestamp"`
}

// ActionRecorder persists action history, e.g. to a queue drained by a historian.
type ActionRecorder interface {
	Record(ctx context.Context, rec ActionRecord) error
}

// CardView is the payload of a newCurrentCard event.
type CardView struct {
	ID       int    `json:"id"`
	CardType string `json:"cardType"`
	Color    string `json:"color"`
	Number   *int   `json:"number,omitempty"`
}

// NewCardView converts a card for the wire.
func NewCardView(c models.Card) CardView {
	v := CardView{ID: c.ID, CardType: c.Kind.String(), Color: c.Color.String()}
	if c.Kind == models.KindNumber {
		n := c.Number
		v.Number = &n
	}
	return v
}

type nopNotifier struct{}

func (nopNotifier) SendToSession(uuid.UUID, string, any)         {}
func (nopNotifier) SendToUser(uuid.UUID, uuid.UUID, string, any) {}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, ActionRecord) error { return nil }

// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is a seat in a game session. The identity belongs to the user roster,
// the hand belongs to the session that owns the player.
type Player struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Hand     []Card    `json:"-"`
}

// PlayerView is the public projection of a player sent to other clients.
type PlayerView struct {
	UserID    uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CardCount int       `json:"cardCount"`
	IsTurn    bool      `json:"isTurn"`
}

// internal/handlers/session.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/models"
)

type createSessionRequest struct {
	StartCardCount int `json:"startCardCount"`
}

type sessionRequest struct {
	SessionID uuid.UUID `json:"sessionId"`
}

func playerFor(actor models.Actor) *models.Player {
	return &models.Player{UserID: actor.ActorID(), Username: actor.DisplayName()}
}

// CreateSessionHandler opens a forming session with the caller seated first.
func CreateSessionHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authenticate(gs, w, r)
		if !ok {
			return
		}
		var req createSessionRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.StartCardCount < 0 || req.StartCardCount > game.DeckSize/game.MinPlayers {
			http.Error(w, "startCardCount out of range", http.StatusBadRequest)
			return
		}

		rules := gs.Rules
		if req.StartCardCount > 0 {
			rules.StartCardCount = req.StartCardCount
		}
		sess := gs.Sessions.Create(playerFor(actor), rules)
		writeJSON(w, map[string]any{
			"sessionId": sess.ID,
			"ruleset":   sess.Ruleset,
		})
	}
}

// JoinSessionHandler seats the caller in a forming session.
func JoinSessionHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authenticate(gs, w, r)
		if !ok {
			return
		}
		var req sessionRequest
		if err := decodeBody(r, &req); err != nil || req.SessionID == uuid.Nil {
			http.Error(w, "invalid sessionId", http.StatusBadRequest)
			return
		}
		if err := gs.Logic.JoinSession(r.Context(), req.SessionID, playerFor(actor)); err != nil {
			writeGameError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionPlayersHandler lists the seated players.
func SessionPlayersHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authenticate(gs, w, r); !ok {
			return
		}
		id, ok := querySessionID(w, r)
		if !ok {
			return
		}
		sess, exists := gs.Sessions.GetSession(id)
		if !exists {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, sess.Players())
	}
}

// internal/handlers/game.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/game"
)

type playRequest struct {
	SessionID uuid.UUID `json:"sessionId"`
	CardID    int       `json:"cardId"`
}

// StartGameHandler answers {"success": bool}; the failure reason is only logged.
func StartGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authenticate(gs, w, r); !ok {
			return
		}
		var req sessionRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		ok := gs.Logic.StartGame(r.Context(), req.SessionID)
		writeJSON(w, map[string]bool{"success": ok})
	}
}

// CardsHandler returns the caller's hand in display order.
func CardsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authenticate(gs, w, r)
		if !ok {
			return
		}
		id, ok := querySessionID(w, r)
		if !ok {
			return
		}
		hand, err := gs.Logic.Hand(id, actor.ActorID())
		if err != nil {
			writeGameError(w, err)
			return
		}
		views := make([]game.CardView, 0, len(hand))
		for _, c := range hand {
			views = append(views, game.NewCardView(c))
		}
		writeJSON(w, views)
	}
}

// CurrentCardHandler returns the top of the discard pile, or 204 before the first play.
func CurrentCardHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authenticate(gs, w, r); !ok {
			return
		}
		id, ok := querySessionID(w, r)
		if !ok {
			return
		}
		card, found, err := gs.Logic.CurrentCard(id)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if !found {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, game.NewCardView(card))
	}
}

// DrawCardHandler draws a card for the caller.
func DrawCardHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authenticate(gs, w, r)
		if !ok {
			return
		}
		var req sessionRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		card, err := gs.Logic.DrawCard(r.Context(), req.SessionID, actor.ActorID())
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, game.NewCardView(card))
	}
}

// PlayCardHandler lays one of the caller's cards.
func PlayCardHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authenticate(gs, w, r)
		if !ok {
			return
		}
		var req playRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		card, err := gs.Logic.PlayCard(r.Context(), req.SessionID, actor.ActorID(), req.CardID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, game.NewCardView(card))
	}
}

// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/models"
	log "github.com/sirupsen/logrus"
)

// authenticate resolves the caller or writes a 401.
func authenticate(gs *GameServer, w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, err := gs.Resolver.Resolve(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			log.WithError(err).Warn("actor resolution failed")
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return actor, true
}

// decodeBody decodes an optional JSON body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// querySessionID parses the sessionId query parameter or writes a 400.
func querySessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("sessionId"))
	if err != nil {
		http.Error(w, "invalid sessionId", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// writeGameError maps game errors to HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrNotInSession):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, game.ErrCardNotInHand),
		errors.Is(err, game.ErrInvalidRuleset):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrCardNotPlayable),
		errors.Is(err, game.ErrNotStarted),
		errors.Is(err, game.ErrAlreadyStarted),
		errors.Is(err, game.ErrJoinLocked),
		errors.Is(err, game.ErrAlreadyJoined),
		errors.Is(err, game.ErrEmptyDeck):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.WithError(err).Error("unexpected game error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// internal/handlers/user.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/models"
	log "github.com/sirupsen/logrus"
)

type tempUserRequest struct {
	Username string `json:"username"`
}

// tempUserView is the guest view model. sessionId is the key the guest
// authenticates with from now on.
type tempUserView struct {
	SessionID string      `json:"sessionId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
}

func newTempUserView(u *models.TempUser) tempUserView {
	return tempUserView{SessionID: u.SessionKey, Username: u.Username, Role: u.Role}
}

// CreateTempUserHandler creates a guest identity.
func CreateTempUserHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tempUserRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		u, err := auth.CreateTempUser(r.Context(), gs.TempUsers, req.Username)
		if errors.Is(err, auth.ErrInvalidUsername) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			log.WithError(err).Error("failed to create temp user")
			http.Error(w, "failed to create temp user", http.StatusInternalServerError)
			return
		}

		log.WithField("user", u.ID).Info("temp user created")
		writeJSON(w, newTempUserView(u))
	}
}

// CurrentTempUserHandler returns the calling guest. Registered users get 401.
func CurrentTempUserHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authenticate(gs, w, r)
		if !ok {
			return
		}
		u, isTemp := actor.(*models.TempUser)
		if !isTemp {
			http.Error(w, "not a temp user", http.StatusUnauthorized)
			return
		}
		writeJSON(w, newTempUserView(u))
	}
}

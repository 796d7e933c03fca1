// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/middleware"
	"github.com/nuno-online/nuno/internal/models"
	"github.com/sirupsen/logrus"
)

// GameServer holds what the HTTP handlers share.
type GameServer struct {
	Sessions  *game.SessionStore
	Logic     *game.Logic
	Resolver  *auth.Resolver
	TempUsers auth.TempUserStore
	Rules     models.Ruleset
}

// NewRouter mounts every route. hub serves the websocket upgrade.
func NewRouter(gs *GameServer, hub http.Handler, logger *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /users/temp/create", CreateTempUserHandler(gs))
	mux.Handle("GET /users/temp/current", CurrentTempUserHandler(gs))

	mux.Handle("POST /session/create", CreateSessionHandler(gs))
	mux.Handle("POST /session/join", JoinSessionHandler(gs))
	mux.Handle("GET /session/players", SessionPlayersHandler(gs))

	mux.Handle("POST /game/start", StartGameHandler(gs))
	mux.Handle("GET /game/cards", CardsHandler(gs))
	mux.Handle("GET /game/current-card", CurrentCardHandler(gs))
	mux.Handle("POST /game/draw", DrawCardHandler(gs))
	mux.Handle("POST /game/play", PlayCardHandler(gs))

	mux.Handle("GET /hubs/players", hub)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return middleware.LogMiddleware(logger)(mux)
}

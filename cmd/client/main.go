// cmd/client/main.go keeps a hub connection to one session open and logs the
// events it receives.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/nuno-online/nuno/internal/client"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/realtime"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		apiURL     = flag.String("api", "http://localhost:8080", "game service base URL")
		username   = flag.String("username", "Guest", "guest name used when no session key is given")
		sessionKey = flag.String("key", os.Getenv("NUNO_SESSION_KEY"), "stored guest session key")
		token      = flag.String("token", os.Getenv("NUNO_TOKEN"), "bearer token of a registered user")
		join       = flag.String("join", "", "game session to join; a new one is created when empty")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(*apiURL, nil)
	user := client.NewCurrentUser(api, *token, *sessionKey)
	if err := user.Check(ctx); err != nil {
		logger.WithError(err).Warn("stored credentials not usable")
	}
	if user.AccessToken() == "" {
		view, err := user.LoginGuest(ctx, *username)
		if err != nil {
			logger.Fatalf("guest login: %v", err)
		}
		logger.Infof("logged in as guest %s (key %s)", view.Username, view.SessionID)
	}

	sessionID, err := openSession(ctx, api, user.AccessToken(), *join)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}
	logger.Infof("session %s", sessionID)

	conn := realtime.NewConnection(user, realtime.WithLogger(logger))
	conn.SetOnConnectedCallback(func() {
		logger.Info("hub connected")
	})
	conn.AddEventHandler(game.EventNewCurrentCard, func(payload json.RawMessage) {
		var card game.CardView
		if err := json.Unmarshal(payload, &card); err != nil {
			logger.WithError(err).Warn("bad newCurrentCard payload")
			return
		}
		logger.WithFields(logrus.Fields{"id": card.ID, "type": card.CardType, "color": card.Color}).Info("new current card")
	})
	conn.AddEventHandler(game.EventMyTurn, func(json.RawMessage) {
		reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		hand, err := api.Cards(reqCtx, user.AccessToken(), sessionID)
		if err != nil {
			logger.WithError(err).Warn("fetch hand")
			return
		}
		logger.Infof("your turn, %d cards in hand", len(hand))
	})
	conn.AddEventHandler(game.EventPlayersChanged, func(payload json.RawMessage) {
		logger.Debugf("players changed: %s", payload)
	})
	conn.AddEventHandler(game.EventGameStarted, func(json.RawMessage) {
		logger.Info("game started")
	})

	if err := conn.Start(ctx, api.HubURL(sessionID)); err != nil {
		logger.Fatalf("hub: %v", err)
	}

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Stop(stopCtx); err != nil {
		logger.WithError(err).Warn("hub stop")
	}
}

func openSession(ctx context.Context, api *client.API, token, join string) (uuid.UUID, error) {
	if join == "" {
		return api.CreateSession(ctx, token, 0)
	}
	id, err := uuid.Parse(join)
	if err != nil {
		return uuid.Nil, err
	}
	return id, api.JoinSession(ctx, token, id)
}

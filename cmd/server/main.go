// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/cache"
	"github.com/nuno-online/nuno/internal/config"
	"github.com/nuno-online/nuno/internal/database"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/handlers"
	"github.com/nuno-online/nuno/internal/hub"
	"github.com/nuno-online/nuno/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	expiry, err := auth.ParseExpiry(cfg.TokenExpireTime)
	if err != nil {
		return err
	}
	var issuer *auth.Issuer
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		issuer, err = auth.NewIssuerFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, expiry)
	} else {
		issuer, err = auth.NewIssuer(expiry)
	}
	if err != nil {
		return err
	}

	var tempUsers auth.TempUserStore = auth.NewMemoryTempUserStore()
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo := database.NewTempUserRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		tempUsers = repo
	} else {
		logger.Info("DATABASE_URL not set, guests are kept in memory")
	}

	var recorder game.ActionRecorder
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		recorder = cache.NewPublisher(rdb, cfg.QueueName)
	} else {
		logger.Info("REDIS_ADDR not set, action history disabled")
	}

	seed := cfg.DeckSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	resolver := auth.NewResolver(issuer, tempUsers)
	sessions := game.NewSessionStore()
	h := hub.New(logger, resolver, sessions)
	logic := game.NewLogic(sessions, game.NewEngine(rand.New(rand.NewSource(seed))), h, recorder)

	gs := &handlers.GameServer{
		Sessions:  sessions,
		Logic:     logic,
		Resolver:  resolver,
		TempUsers: tempUsers,
		Rules:     models.Ruleset{StartCardCount: cfg.StartCardCount},
	}
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(gs, http.HandlerFunc(h.ServeWS), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return logic.Close(shutdownCtx)
	})
	return g.Wait()
}

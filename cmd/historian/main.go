// cmd/historian/main.go drains the action queue into Postgres.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nuno-online/nuno/internal/cache"
	"github.com/nuno-online/nuno/internal/config"
	"github.com/nuno-online/nuno/internal/database"
	"github.com/nuno-online/nuno/internal/historian"
	log "github.com/sirupsen/logrus"
)

var _ historian.Sink = (*database.ActionRepository)(nil)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		log.Fatal("historian needs both REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	repo := database.NewActionRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	h := historian.New(rdb, repo, historian.Options{
		Queue:      cfg.QueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay,
		Inactivity: cfg.InactivityTimeout,
	})
	if err := h.Run(ctx); err != nil {
		log.Errorf("historian stopped: %v", err)
	}
	log.Info("Historian shutdown complete.")
}

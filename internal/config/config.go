// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the game service configuration. Values are layered: defaults, then
// the optional YAML file, then environment variables.
type Config struct {
	Port     int    `yaml:"port" env:"PORT"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" env:"REDIS_DB"`
	QueueName   string `yaml:"historian_queue_name" env:"HISTORIAN_QUEUE_NAME"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	TokenExpireTime string `yaml:"token_expire_time" env:"TOKEN_EXPIRE_TIME"`
	PrivateKeyPath  string `yaml:"private_key_path" env:"PRIVATE_KEY_PATH"`
	PublicKeyPath   string `yaml:"public_key_path" env:"PUBLIC_KEY_PATH"`

	StartCardCount int   `yaml:"start_card_count" env:"START_CARD_COUNT"`
	DeckSeed       int64 `yaml:"deck_seed" env:"DECK_SEED"`

	HistorianBatchSize  int           `yaml:"historian_batch_size" env:"HISTORIAN_BATCH_SIZE"`
	HistorianFlushDelay time.Duration `yaml:"historian_flush_delay" env:"HISTORIAN_FLUSH_DELAY"`
	InactivityTimeout   time.Duration `yaml:"game_inactivity_timeout" env:"GAME_INACTIVITY_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:            8080,
		LogLevel:        "info",
		QueueName:       "nuno_actions",
		TokenExpireTime: "72h",
		StartCardCount:  7,

		HistorianBatchSize:  20,
		HistorianFlushDelay: 500 * time.Millisecond,
		InactivityTimeout:   10 * time.Minute,
	}
}

// Load builds the configuration. An empty path or a missing file skips the
// YAML layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.StartCardCount <= 0 {
		return fmt.Errorf("start card count must be positive, got %d", c.StartCardCount)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

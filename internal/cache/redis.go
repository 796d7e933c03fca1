// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nuno-online/nuno/internal/game"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "nuno_actions"

// Connect opens a Redis client and pings it once.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes action records onto a Redis list drained by a historian.
// It implements game.ActionRecorder.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher returns a publisher for queue, falling back to DefaultQueueName.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Record serializes rec to JSON, then pushes it to the queue.
func (p *Publisher) Record(ctx context.Context, rec game.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Drain pops up to n records from the head of the queue. Historians and tests
// use it to consume what Record produced.
func (p *Publisher) Drain(ctx context.Context, n int) ([]game.ActionRecord, error) {
	var out []game.ActionRecord
	for i := 0; i < n; i++ {
		data, err := p.rdb.LPop(ctx, p.queue).Bytes()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to LPop from Redis list '%s': %w", p.queue, err)
		}
		var rec game.ActionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return out, fmt.Errorf("failed to unmarshal ActionRecord: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

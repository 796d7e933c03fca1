// internal/cache/redis_test.go
package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPublisher(client, ""), mr
}

func TestPublisherRecord(t *testing.T) {
	p, mr := newTestPublisher(t)
	ctx := context.Background()

	sessionID := uuid.New()
	for i := int64(1); i <= 2; i++ {
		err := p.Record(ctx, game.ActionRecord{
			SessionID:     sessionID,
			ActionIndex:   i,
			ActionType:    "draw",
			ActionPayload: map[string]any{"deckSize": float64(80 - i)},
		})
		require.NoError(t, err)
	}

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	recs, err := p.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].ActionIndex)
	assert.Equal(t, sessionID, recs[1].SessionID)
	assert.Equal(t, float64(78), recs[1].ActionPayload["deckSize"])

	assert.False(t, mr.Exists(DefaultQueueName), "queue drained")
}

func TestPublisherRecordError(t *testing.T) {
	p, mr := newTestPublisher(t)
	mr.Close()

	err := p.Record(context.Background(), game.ActionRecord{ActionType: "play"})
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	defer rdb.Close()

	_, err = Connect(context.Background(), "127.0.0.1:1", 0)
	assert.Error(t, err)
}

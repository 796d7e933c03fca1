// internal/database/temp_user_test.go
package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real Postgres, e.g. DATABASE_URL=postgres://localhost/nuno_test.
func TestTempUserRepository(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewTempUserRepository(pool)
	require.NoError(t, repo.Migrate(ctx))

	u, err := auth.CreateTempUser(ctx, repo, "db-guest")
	require.NoError(t, err)

	got, err := repo.GetTempUserBySessionKey(ctx, u.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, u.Role, got.Role)

	_, err = repo.GetTempUserBySessionKey(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrTempUserNotFound)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "::not a url::")
	assert.Error(t, err)
}

func TestActionRepository(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewActionRepository(pool)
	require.NoError(t, repo.Migrate(ctx))

	sessionID := uuid.New()
	recs := []game.ActionRecord{
		{SessionID: sessionID, ActionIndex: 1, ActionType: "game_start", ActionPayload: map[string]any{"players": 2}},
		{SessionID: sessionID, ActionIndex: 2, ActorUserID: uuid.New(), ActionType: "draw"},
	}
	require.NoError(t, repo.WriteBatch(ctx, recs))
	// replays are ignored
	require.NoError(t, repo.WriteBatch(ctx, recs))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM session_actions WHERE session_id=$1`, sessionID).Scan(&n))
	assert.Equal(t, 2, n)

	require.NoError(t, repo.MarkAbandoned(ctx, sessionID))
	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM sessions WHERE id=$1`, sessionID).Scan(&status))
	assert.Equal(t, "abandoned", status)
}

// internal/database/action.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuno-online/nuno/internal/game"
)

const actionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	end_time   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS session_actions (
	session_id     UUID NOT NULL REFERENCES sessions(id),
	action_index   BIGINT NOT NULL,
	actor_user_id  UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	recorded_at    BIGINT NOT NULL,
	PRIMARY KEY (session_id, action_index)
)`

// ActionRepository persists session action history. It implements historian.Sink.
type ActionRepository struct {
	pool *pgxpool.Pool
}

func NewActionRepository(pool *pgxpool.Pool) *ActionRepository {
	return &ActionRepository{pool: pool}
}

// Migrate creates the sessions and session_actions tables if missing.
func (r *ActionRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, actionsSchema); err != nil {
		return fmt.Errorf("failed to create action tables: %w", err)
	}
	return nil
}

// WriteBatch inserts the records in a single transaction.
func (r *ActionRepository) WriteBatch(ctx context.Context, recs []game.ActionRecord) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertActionTx: %w", err)
			}
		}
		return nil
	})
}

// MarkAbandoned flags an in-progress session as abandoned.
func (r *ActionRepository) MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error {
	q := `
		UPDATE sessions
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	_, err := r.pool.Exec(ctx, q, sessionID)
	return err
}

// insertActionTx upserts the session row, then inserts the action.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec game.ActionRecord) error {
	upsertQ := `
		INSERT INTO sessions (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertQ, rec.SessionID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if rec.ActorUserID != uuid.Nil {
		actor = &rec.ActorUserID
	}

	insertQ := `
		INSERT INTO session_actions (
			session_id, action_index, actor_user_id, action_type, action_payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, insertQ,
		rec.SessionID, rec.ActionIndex, actor, rec.ActionType, payload, rec.Timestamp,
	)
	return err
}

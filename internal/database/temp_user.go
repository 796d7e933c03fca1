// internal/database/temp_user.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/models"
)

const tempUsersSchema = `
CREATE TABLE IF NOT EXISTS temp_users (
	id          UUID PRIMARY KEY,
	session_key TEXT NOT NULL UNIQUE,
	username    TEXT NOT NULL,
	role        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// TempUserRepository stores guest identities in Postgres. It implements auth.TempUserStore.
type TempUserRepository struct {
	pool *pgxpool.Pool
}

func NewTempUserRepository(pool *pgxpool.Pool) *TempUserRepository {
	return &TempUserRepository{pool: pool}
}

// Migrate creates the temp_users table if it does not exist.
func (r *TempUserRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, tempUsersSchema); err != nil {
		return fmt.Errorf("failed to create temp_users: %w", err)
	}
	return nil
}

func (r *TempUserRepository) CreateTempUser(ctx context.Context, u *models.TempUser) error {
	q := `INSERT INTO temp_users (id, session_key, username, role, created_at)
	      VALUES ($1, $2, $3, $4, $5)`

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			u.ID, u.SessionKey, u.Username, string(u.Role), time.Unix(u.CreatedAt, 0),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert temp user: %w", err)
	}
	return nil
}

func (r *TempUserRepository) GetTempUserBySessionKey(ctx context.Context, key string) (*models.TempUser, error) {
	var (
		u         models.TempUser
		role      string
		createdAt time.Time
	)
	q := `
	SELECT id, session_key, username, role, created_at
	FROM temp_users
	WHERE session_key=$1
	`
	err := r.pool.QueryRow(ctx, q, key).Scan(&u.ID, &u.SessionKey, &u.Username, &role, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrTempUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.CreatedAt = createdAt.Unix()
	return &u, nil
}

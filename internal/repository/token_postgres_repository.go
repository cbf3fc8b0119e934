package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	createClientStateTable = `CREATE TABLE IF NOT EXISTS client_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`
	selectClientState = `SELECT value FROM client_state WHERE key = $1`
	upsertClientState = `INSERT INTO client_state (key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	deleteClientState = `DELETE FROM client_state WHERE key = $1`
)

// PostgresTokenRepository keeps the session token in the client_state table.
type PostgresTokenRepository struct {
	db  *sqlx.DB
	key string
}

// NewPostgresTokenRepository stores the token under key.
func NewPostgresTokenRepository(db *sqlx.DB, key string) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db, key: key}
}

// EnsureSchema creates the client_state table when missing.
func (r *PostgresTokenRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createClientStateTable); err != nil {
		return fmt.Errorf("create client_state: %w", err)
	}
	return nil
}

// Load returns the stored token or "" when none exists.
func (r *PostgresTokenRepository) Load(ctx context.Context) (string, error) {
	var value string
	if err := r.db.GetContext(ctx, &value, selectClientState, r.key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load client_state %s: %w", r.key, err)
	}
	return value, nil
}

// Save replaces the stored token.
func (r *PostgresTokenRepository) Save(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, upsertClientState, r.key, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("save client_state %s: %w", r.key, err)
	}
	return nil
}

// Delete removes the stored token.
func (r *PostgresTokenRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteClientState, r.key); err != nil {
		return fmt.Errorf("delete client_state %s: %w", r.key, err)
	}
	return nil
}

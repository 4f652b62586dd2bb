// Package adminkey persists and resolves admin bearer keys, backing the
// internal/auth.AdminKeyLookup interface used by the admin HTTP surface.
package adminkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hacksprint/hacksprint/internal/auth"
)

// Store is the Postgres-backed admin key lookup and issuance path.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an admin key Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindByPrefix implements auth.AdminKeyLookup.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*auth.AdminKeyRecord, error) {
	rec := &auth.AdminKeyRecord{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, prefix, hash, active FROM admin_keys WHERE prefix = $1`, prefix,
	).Scan(&rec.ID, &rec.Prefix, &rec.Hash, &rec.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrAdminKeyNotFound
		}
		return nil, fmt.Errorf("querying admin key: %w", err)
	}
	return rec, nil
}

// Create persists a newly generated admin key. Called only from the
// seed-mode CLI path, never from an HTTP handler.
func (s *Store) Create(ctx context.Context, prefix string, hash []byte, label string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO admin_keys (prefix, hash, label) VALUES ($1, $2, $3) RETURNING id`,
		prefix, hash, label,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting admin key: %w", err)
	}
	return id, nil
}

// Deactivate disables an admin key so it no longer authenticates requests.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE admin_keys SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating admin key: %w", err)
	}
	return nil
}

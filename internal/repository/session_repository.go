package repository

import (
	"context"
	"database/sql"
	"time"
)

// SessionRepo persists and validates local session token hashes.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Store inserts a session token hash row.
func (r *SessionRepo) Store(ctx context.Context, identityID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (identity_id, token_hash, expires_at) VALUES (?,?,?)",
		identityID, tokenHash, exp)
	return wrap(EntitySession, "insert", err)
}

// Validate returns the identity id if a non-revoked, non-expired session
// exists for the hash.  Revoked and expired sessions report ErrNotFound.
func (r *SessionRepo) Validate(ctx context.Context, tokenHash string) (string, error) {
	var (
		identityID string
		expiresAt  time.Time
		revokedAt  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT identity_id, expires_at, revoked_at FROM sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&identityID, &expiresAt, &revokedAt)
	if err != nil {
		return "", wrap(EntitySession, "get", err)
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return "", notFound(EntitySession, "get")
	}
	return identityID, nil
}

// RevokeByHash marks a session as revoked.
func (r *SessionRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return wrap(EntitySession, "update", err)
}

// RevokeAllForIdentity revokes every active session of an identity.
func (r *SessionRepo) RevokeAllForIdentity(ctx context.Context, identityID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE identity_id=? AND revoked_at IS NULL",
		identityID)
	return wrap(EntitySession, "update", err)
}

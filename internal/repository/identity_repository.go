package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/model"
	"github.com/iliyamo/storefront-admin/internal/utils"
)

// IdentityRecord mirrors the 'identities' table used by the local identity
// provider.
type IdentityRecord struct {
	model.Identity
	PasswordHash string
}

// IdentityRepo stores login identities for the local provider.
type IdentityRepo struct{ DB *sql.DB }

func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{DB: db} }

// Create hashes the credential and inserts the identity.  A second identity
// with the same email fails with ErrDuplicate.
func (r *IdentityRepo) Create(ctx context.Context, id, email, password string, cost int) (model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.Identity{}, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"INSERT INTO identities (id, email, password_hash) VALUES (?,?,?)",
		id, email, hash); err != nil {
		return model.Identity{}, wrap(EntityIdentity, "insert", err)
	}
	return r.GetByID(ctx, id)
}

// GetByEmail fetches an identity by normalized email.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (IdentityRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rec IdentityRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,created_at FROM identities WHERE email=? LIMIT 1",
		email).Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.CreatedAt)
	return rec, wrap(EntityIdentity, "get", err)
}

// GetByID fetches an identity by id.
func (r *IdentityRepo) GetByID(ctx context.Context, id string) (model.Identity, error) {
	var ident model.Identity
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,created_at FROM identities WHERE id=? LIMIT 1",
		id).Scan(&ident.ID, &ident.Email, &ident.CreatedAt)
	return ident, wrap(EntityIdentity, "get", err)
}

// Delete removes an identity.  It reports whether a row was removed so
// callers can treat a second delete as a no-op.
func (r *IdentityRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM identities WHERE id=?", id)
	if err != nil {
		return false, wrap(EntityIdentity, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap(EntityIdentity, "delete", err)
	}
	return n > 0, nil
}

// IsNotFound reports whether err is a missing-row StoreError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

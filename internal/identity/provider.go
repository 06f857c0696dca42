// Package identity holds the login-identity providers.  A provider is the
// authority for who can sign in; business data (customers, entitlements)
// only references identities by id and never caches them.
package identity

import (
	"context"
	"errors"

	"github.com/iliyamo/storefront-admin/internal/model"
)

var (
	// ErrEmailTaken is returned when an identity with the email exists.
	ErrEmailTaken = errors.New("identity: email already registered")
	// ErrWeakCredential is returned when the initial credential is rejected.
	ErrWeakCredential = errors.New("identity: credential rejected")
	// ErrInvalidSession is returned for unknown, expired or revoked sessions.
	ErrInvalidSession = errors.New("identity: invalid session")
	// ErrInvalidCredentials is returned by password login on a mismatch.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Provider creates and deletes login identities and validates sessions.
// DeleteIdentity treats an identity that no longer exists as deleted.
type Provider interface {
	CreateIdentity(ctx context.Context, email, initialCredential string) (model.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	ValidateSession(ctx context.Context, token string) (model.Identity, error)
}

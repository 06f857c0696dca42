package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-admin/internal/model"
	"github.com/iliyamo/storefront-admin/internal/repository"
	"github.com/iliyamo/storefront-admin/internal/utils"
)

type identityStore interface {
	Create(ctx context.Context, id, email, password string, cost int) (model.Identity, error)
	GetByEmail(ctx context.Context, email string) (repository.IdentityRecord, error)
	GetByID(ctx context.Context, id string) (model.Identity, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type sessionStore interface {
	Store(ctx context.Context, identityID, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForIdentity(ctx context.Context, identityID string) error
}

// LocalConfig configures the local provider.
type LocalConfig struct {
	SessionSecret string        // HMAC key for session JWTs
	SessionTTL    time.Duration // lifetime of an issued session
	BcryptCost    int           // bcrypt cost for credential hashing
}

// Local is the identity provider backed by the service's own MySQL
// identities and sessions tables.
type Local struct {
	identities identityStore
	sessions   sessionStore
	cfg        LocalConfig
}

// NewLocal builds a Local provider.
func NewLocal(identities identityStore, sessions sessionStore, cfg LocalConfig) *Local {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Local{identities: identities, sessions: sessions, cfg: cfg}
}

// CreateIdentity registers a new identity with a fresh uuid.
func (l *Local) CreateIdentity(ctx context.Context, email, initialCredential string) (model.Identity, error) {
	ident, err := l.identities.Create(ctx, uuid.NewString(), email, initialCredential, l.cfg.BcryptCost)
	switch {
	case err == nil:
		return ident, nil
	case errors.Is(err, utils.ErrWeakPassword):
		return model.Identity{}, fmt.Errorf("%w: %v", ErrWeakCredential, err)
	case errors.Is(err, repository.ErrDuplicate):
		return model.Identity{}, ErrEmailTaken
	default:
		return model.Identity{}, err
	}
}

// DeleteIdentity revokes all sessions and removes the identity.  Deleting
// an unknown id succeeds.
func (l *Local) DeleteIdentity(ctx context.Context, id string) error {
	if err := l.sessions.RevokeAllForIdentity(ctx, id); err != nil {
		return err
	}
	if _, err := l.identities.Delete(ctx, id); err != nil {
		return err
	}
	return nil
}

// ValidateSession checks signature and expiry of the token, then that the
// server-side session is still active and belongs to an existing identity.
func (l *Local) ValidateSession(ctx context.Context, token string) (model.Identity, error) {
	claims, err := utils.ParseSessionToken(l.cfg.SessionSecret, token)
	if err != nil {
		return model.Identity{}, ErrInvalidSession
	}
	identityID, err := l.sessions.Validate(ctx, utils.HashTokenID(claims.ID))
	if err != nil {
		if repository.IsNotFound(err) {
			return model.Identity{}, ErrInvalidSession
		}
		return model.Identity{}, err
	}
	if identityID != claims.Subject {
		return model.Identity{}, ErrInvalidSession
	}
	ident, err := l.identities.GetByID(ctx, identityID)
	if err != nil {
		if repository.IsNotFound(err) {
			return model.Identity{}, ErrInvalidSession
		}
		return model.Identity{}, err
	}
	return ident, nil
}

// Login verifies an email/password pair and opens a new session.
func (l *Local) Login(ctx context.Context, email, password string) (utils.SessionToken, model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rec, err := l.identities.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return utils.SessionToken{}, model.Identity{}, ErrInvalidCredentials
		}
		return utils.SessionToken{}, model.Identity{}, err
	}
	if !utils.VerifyPassword(rec.PasswordHash, password) {
		return utils.SessionToken{}, model.Identity{}, ErrInvalidCredentials
	}
	tok, err := utils.NewSessionToken(l.cfg.SessionSecret, rec.ID, rec.Email, l.cfg.SessionTTL)
	if err != nil {
		return utils.SessionToken{}, model.Identity{}, err
	}
	if err := l.sessions.Store(ctx, rec.ID, utils.HashTokenID(tok.ID), tok.Exp); err != nil {
		return utils.SessionToken{}, model.Identity{}, err
	}
	return tok, rec.Identity, nil
}

// Logout revokes the session behind token.
func (l *Local) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseSessionToken(l.cfg.SessionSecret, token)
	if err != nil {
		return ErrInvalidSession
	}
	return l.sessions.RevokeByHash(ctx, utils.HashTokenID(claims.ID))
}

// Package auth decides whether a request may use the administrative
// surface.  It knows nothing about HTTP; the echo middleware extracts the
// credential and maps denials to status codes.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/identity"
	"github.com/iliyamo/storefront-admin/internal/model"
)

// ErrAuthDenied is wrapped by every denial.
var ErrAuthDenied = errors.New("auth: denied")

var (
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrAuthDenied)
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrAuthDenied)
	ErrNotAdministrator  = fmt.Errorf("%w: not an administrator", ErrAuthDenied)
)

// Principal kinds.
const (
	KindToken   = "token"
	KindSession = "session"
)

// Principal is the authorized caller.
type Principal struct {
	Kind       string
	IdentityID string
	Email      string
}

// String is used as the rate-limit key and in logs.
func (p Principal) String() string {
	if p.Kind == KindSession {
		return KindSession + ":" + p.IdentityID
	}
	return p.Kind
}

// SessionValidator resolves a session token to an identity.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (model.Identity, error)
}

// AllowList is the set of administrator emails, compared case-insensitively.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList, ignoring blanks.
func NewAllowList(emails ...string) AllowList {
	a := make(AllowList, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			a[e] = struct{}{}
		}
	}
	return a
}

// Contains reports whether email is an administrator.
func (a AllowList) Contains(email string) bool {
	_, ok := a[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Guard authorizes administrative calls.  A credential equal to the static
// API token is accepted as a service caller; anything else must be a
// session of an allow-listed identity.
type Guard struct {
	staticToken []byte
	sessions    SessionValidator
	admins      AllowList
}

// NewGuard returns a Guard.  An empty staticToken disables token mode and a
// nil sessions validator disables session mode.
func NewGuard(staticToken string, sessions SessionValidator, admins AllowList) *Guard {
	g := &Guard{sessions: sessions, admins: admins}
	if staticToken != "" {
		g.staticToken = []byte(staticToken)
	}
	return g
}

// Authorize returns the principal for credential.  Denials wrap
// ErrAuthDenied; any other error means the session backend failed.
func (g *Guard) Authorize(ctx context.Context, credential string) (Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Principal{}, ErrMissingCredential
	}
	if g.staticToken != nil && subtle.ConstantTimeCompare(g.staticToken, []byte(credential)) == 1 {
		return Principal{Kind: KindToken}, nil
	}
	if g.sessions == nil {
		return Principal{}, ErrInvalidCredential
	}
	ident, err := g.sessions.ValidateSession(ctx, credential)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidSession) {
			return Principal{}, ErrInvalidCredential
		}
		return Principal{}, fmt.Errorf("validate session: %w", err)
	}
	if !g.admins.Contains(ident.Email) {
		return Principal{}, ErrNotAdministrator
	}
	return Principal{Kind: KindSession, IdentityID: ident.ID, Email: strings.ToLower(ident.Email)}, nil
}

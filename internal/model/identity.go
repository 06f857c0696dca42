package model

import "time"

// Identity is a login-capable account held by the identity provider.  It
// is independent of business data; a Customer references it by ID.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session models an entry in the `sessions` table used by the local
// identity provider.  Only a SHA-256 hash of the token id is stored.
//
// Fields:
//  ID         – primary key identifier.
//  IdentityID – owner of the session.
//  TokenHash  – SHA-256 hex digest of the session token id (jti).
//  ExpiresAt  – expiration timestamp.
//  RevokedAt  – when the session was revoked (null if still active).
type Session struct {
	ID         uint64     // sessions.id
	IdentityID string     // sessions.identity_id
	TokenHash  string     // sessions.token_hash
	ExpiresAt  time.Time  // sessions.expires_at
	RevokedAt  *time.Time // sessions.revoked_at (nullable)
	CreatedAt  time.Time  // sessions.created_at
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbAuth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/iliyamo/storefront-admin/internal/model"
)

// firebaseAuth is the subset of *auth.Client the provider uses.
type firebaseAuth interface {
	CreateUser(ctx context.Context, user *fbAuth.UserToCreate) (*fbAuth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*fbAuth.Token, error)
}

// Firebase is the identity provider backed by Firebase Authentication.
type Firebase struct {
	client   firebaseAuth
	rejected func(error) bool
}

// NewFirebase wraps a Firebase auth client.
func NewFirebase(client firebaseAuth) *Firebase {
	return &Firebase{client: client, rejected: tokenRejected}
}

// tokenRejected reports whether VerifyIDToken refused the token itself, as
// opposed to failing to reach Firebase or fetch its signing keys.
func tokenRejected(err error) bool {
	return fbAuth.IsIDTokenInvalid(err) || fbAuth.IsIDTokenExpired(err) || fbAuth.IsIDTokenRevoked(err)
}

// InitFirebaseAuth initializes a Firebase Admin SDK auth client.  The
// service account JSON is read from credentialsFile, falling back to the
// GOOGLE_APPLICATION_CREDENTIALS environment variable.
func InitFirebaseAuth(ctx context.Context, credentialsFile string) (*fbAuth.Client, error) {
	if credentialsFile == "" {
		credentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if credentialsFile == "" {
		return nil, errors.New("firebase: no service account credentials configured")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}

// CreateIdentity creates a Firebase user with the given email and password.
func (f *Firebase) CreateIdentity(ctx context.Context, email, initialCredential string) (model.Identity, error) {
	params := (&fbAuth.UserToCreate{}).
		Email(strings.ToLower(strings.TrimSpace(email))).
		Password(initialCredential)
	rec, err := f.client.CreateUser(ctx, params)
	if err != nil {
		if fbAuth.IsEmailAlreadyExists(err) {
			return model.Identity{}, ErrEmailTaken
		}
		return model.Identity{}, err
	}
	ident := model.Identity{ID: rec.UID, Email: rec.Email}
	if rec.UserMetadata != nil && rec.UserMetadata.CreationTimestamp > 0 {
		ident.CreatedAt = time.UnixMilli(rec.UserMetadata.CreationTimestamp).UTC()
	}
	return ident, nil
}

// DeleteIdentity deletes the Firebase user.  A user that is already gone
// counts as deleted.
func (f *Firebase) DeleteIdentity(ctx context.Context, id string) error {
	if err := f.client.DeleteUser(ctx, id); err != nil && !fbAuth.IsUserNotFound(err) {
		return err
	}
	return nil
}

// ValidateSession verifies a Firebase ID token and returns the identity it
// was issued for.  Only a rejected token is ErrInvalidSession; any other
// failure is returned wrapped so the guard reports the backend as down.
func (f *Firebase) ValidateSession(ctx context.Context, token string) (model.Identity, error) {
	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		if f.rejected(err) {
			return model.Identity{}, ErrInvalidSession
		}
		return model.Identity{}, fmt.Errorf("firebase: verify id token: %w", err)
	}
	email, _ := tok.Claims["email"].(string)
	if email == "" {
		return model.Identity{}, ErrInvalidSession
	}
	return model.Identity{ID: tok.UID, Email: strings.ToLower(email)}, nil
}

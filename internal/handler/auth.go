package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-admin/internal/identity"
	"github.com/iliyamo/storefront-admin/internal/middleware"
	"github.com/iliyamo/storefront-admin/internal/model"
	"github.com/iliyamo/storefront-admin/internal/utils"
)

// SessionIssuer opens and closes password sessions.  The local identity
// provider implements it.
type SessionIssuer interface {
	Login(ctx context.Context, email, password string) (utils.SessionToken, model.Identity, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler serves /v1/auth for administrators signing in to the admin
// UI.  Sessions are returned both in the body and as an HttpOnly cookie.
type AuthHandler struct {
	Sessions     SessionIssuer
	SecureCookie bool
}

func NewAuthHandler(s SessionIssuer, secureCookie bool) *AuthHandler {
	return &AuthHandler{Sessions: s, SecureCookie: secureCookie}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	Identity model.Identity `json:"identity"`
	Session  tokenPart      `json:"session"`
}

// Login verifies the password and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tok, ident, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	c.SetCookie(h.cookie(tok.Token, tok.Exp))
	return c.JSON(http.StatusOK, loginResp{
		Identity: ident,
		Session:  tokenPart{Token: tok.Token, Expires: tok.Exp},
	})
}

// Logout revokes the session presented as bearer token or cookie and
// clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := middleware.Credential(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Logout(ctx, raw); err != nil {
		if errors.Is(err, identity.ErrInvalidSession) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	c.SetCookie(h.cookie("", time.Unix(0, 0)))
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) cookie(value string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	return ck
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/storefront-admin/internal/auth"
	"github.com/iliyamo/storefront-admin/internal/config"
	"github.com/iliyamo/storefront-admin/internal/logger"
)

type authorizerFunc func(ctx context.Context, credential string) (auth.Principal, error)

func (f authorizerFunc) Authorize(ctx context.Context, credential string) (auth.Principal, error) {
	return f(ctx, credential)
}

func stubGuard(_ context.Context, credential string) (auth.Principal, error) {
	switch credential {
	case "":
		return auth.Principal{}, auth.ErrMissingCredential
	case "service-token":
		return auth.Principal{Kind: auth.KindToken}, nil
	case "admin-session":
		return auth.Principal{Kind: auth.KindSession, IdentityID: "id-1", Email: "ops@example.com"}, nil
	case "buyer-session":
		return auth.Principal{}, auth.ErrNotAdministrator
	case "broken":
		return auth.Principal{}, errors.New("db down")
	}
	return auth.Principal{}, auth.ErrInvalidCredential
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantKind   string
	}{
		{name: "no credential", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme ignored", header: "Basic c2VydmljZS10b2tlbg==", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "static token", header: "Bearer service-token", wantStatus: http.StatusOK, wantKind: auth.KindToken},
		{name: "lowercase scheme", header: "bearer service-token", wantStatus: http.StatusOK, wantKind: auth.KindToken},
		{name: "session cookie", cookie: "admin-session", wantStatus: http.StatusOK, wantKind: auth.KindSession},
		{name: "non admin session", cookie: "buyer-session", wantStatus: http.StatusForbidden},
		{name: "backend failure", header: "Bearer broken", wantStatus: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			called := false
			var got auth.Principal
			h := RequireAdmin(authorizerFunc(stubGuard))(func(c echo.Context) error {
				called = true
				got, _ = PrincipalFrom(c)
				return c.NoContent(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/admin/customer/provision", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			require.NoError(t, h(e.NewContext(req, rec)))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantStatus == http.StatusOK, called, "handler must not run on denial")
			if tc.wantKind != "" {
				assert.Equal(t, tc.wantKind, got.Kind)
			}
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	var fromCtx *zap.Logger
	h := RequestLogger(zap.New(core))(func(c echo.Context) error {
		fromCtx = logger.FromContext(c.Request().Context())
		c.Set(principalKey, auth.Principal{Kind: auth.KindToken})
		return c.NoContent(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/customer/c-1", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-42")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))

	assert.Equal(t, "rid-42", rec.Header().Get(echo.HeaderXRequestID))
	require.NotNil(t, fromCtx)
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "rid-42", fields["request_id"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "token", fields["principal"])
}

func TestRequestLoggerGeneratesIDAndRendersErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	h := RequestLogger(zap.New(core))(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream")
	})

	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	for _, cfg := range []config.RateLimitConfig{{Enabled: false}, {Enabled: true}} {
		h := NewTokenBucket(cfg, nil)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Burst: 1, Every: time.Second, Prefix: "rl:test"}
	h := NewTokenBucket(cfg, rdb)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodPost, "/admin/customer/update", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/customer/update", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/admin/customer/update")

	cfg := config.RateLimitConfig{Prefix: "rl:admin", KeyBy: config.KeyByIP}
	assert.Equal(t, "rl:admin:ip:10.0.0.7", rateKey(cfg, c))

	cfg.KeyBy = config.KeyByPrincipalRoute
	assert.Equal(t, "rl:admin:p:anon:POST /admin/customer/update", rateKey(cfg, c))

	c.Set(principalKey, auth.Principal{Kind: auth.KindSession, IdentityID: "id-1"})
	assert.Equal(t, "rl:admin:p:session:id-1:POST /admin/customer/update", rateKey(cfg, c))

	cfg.KeyBy = config.KeyByPrincipal
	assert.Equal(t, "rl:admin:p:session:id-1", rateKey(cfg, c))
}

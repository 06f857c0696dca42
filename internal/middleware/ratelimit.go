package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-admin/internal/config"
	"github.com/iliyamo/storefront-admin/internal/logger"
)

// takeScript refills the bucket for the time elapsed since its last use
// and takes one token.  Time comes from the Redis server so instances with
// skewed clocks share one view.  It returns {allowed, remaining, wait_ms}.
var takeScript = redis.NewScript(`
local burst = tonumber(ARGV[1])
local every_ms = tonumber(ARGV[2])

local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local at = tonumber(redis.call('HGET', KEYS[1], 'at'))
if tokens == nil or at == nil then
  tokens = burst
  at = now
end
tokens = math.min(burst, tokens + math.max(0, now - at) / every_ms)

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * every_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'at', now)
redis.call('PEXPIRE', KEYS[1], burst * every_ms)
return { allowed, math.floor(tokens), wait }
`)

type decision struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

type bucket struct {
	rdb   redis.Scripter
	burst int
	every time.Duration
}

func (b bucket) take(ctx context.Context, key string) (decision, error) {
	vals, err := takeScript.Run(ctx, b.rdb, []string{key}, b.burst, b.every.Milliseconds()).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(vals) != 3 {
		return decision{}, fmt.Errorf("rate limiter: unexpected reply %v", vals)
	}
	return decision{
		allowed:    vals[0] == 1,
		remaining:  vals[1],
		retryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket throttles admin calls with a Redis token bucket per
// principal, principal and route, or client ip.  It must run after
// RequireAdmin to see the principal.  A Redis failure lets the request
// through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := bucket{rdb: rdb, burst: cfg.Burst, every: cfg.Every}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)

			d, err := b.take(ctx, key)
			if err != nil {
				logger.FromContext(ctx).Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.allowed {
				return next(c)
			}

			secs := int64(math.Ceil(d.retryAfter.Seconds()))
			h.Set("Retry-After", strconv.FormatInt(secs, 10))
			logger.FromContext(ctx).Info("rate limited", zap.String("key", key), zap.Duration("retry_after", d.retryAfter))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":      "too many requests",
				"code":       "RateLimited",
				"retryAfter": secs,
			})
		}
	}
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	switch cfg.KeyBy {
	case config.KeyByIP:
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		return cfg.Prefix + ":ip:" + ip
	case config.KeyByPrincipal:
		return cfg.Prefix + ":p:" + principalKeyOf(c)
	default:
		return cfg.Prefix + ":p:" + principalKeyOf(c) + ":" + c.Request().Method + " " + c.Path()
	}
}

func principalKeyOf(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.String()
	}
	return "anon"
}

package config

import (
	"strings"
	"time"
)

// Rate limit key scopes.
const (
	KeyByIP             = "ip"
	KeyByPrincipal      = "principal"
	KeyByPrincipalRoute = "principal_route"
)

// RateLimitConfig configures the Redis token bucket in front of /admin.
// A bucket holds up to Burst tokens and regains one every Every.
type RateLimitConfig struct {
	Enabled bool          // RATE_LIMIT_ENABLED
	Burst   int           // RATE_LIMIT_BURST
	Every   time.Duration // RATE_LIMIT_EVERY
	KeyBy   string        // RATE_LIMIT_KEY_BY: ip, principal or principal_route
	Prefix  string        // RATE_LIMIT_PREFIX
	Debug   bool          // RATE_LIMIT_DEBUG, echoes the bucket key in a header
}

// LoadRateLimitConfig reads RATE_LIMIT_*.  The defaults allow a burst of
// 30 admin calls per principal and route, then one every two seconds.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Burst:   envInt("RATE_LIMIT_BURST", 30),
		Every:   envDur("RATE_LIMIT_EVERY", 2*time.Second),
		KeyBy:   strings.ToLower(envStr("RATE_LIMIT_KEY_BY", KeyByPrincipalRoute)),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl:admin"),
		Debug:   envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Every <= 0 {
		cfg.Every = time.Second
	}
	switch cfg.KeyBy {
	case KeyByIP, KeyByPrincipal, KeyByPrincipalRoute:
	default:
		cfg.KeyBy = KeyByPrincipalRoute
	}
	return cfg
}

// Refill is the time an empty bucket takes to fill up again.  Idle
// buckets expire after it.
func (c RateLimitConfig) Refill() time.Duration {
	return time.Duration(c.Burst) * c.Every
}

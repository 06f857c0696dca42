package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// The env helpers fall back to d when the variable is unset or does not
// parse.  Load reports malformed required values itself.

func envStr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k))); err == nil {
		return b
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return d
}

// Package timeouts holds the shared deadlines for database-facing request
// work: Ping bounds health and readiness checks, Short bounds
// single-document lookups such as the per-request session-user fetch.
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Defaults, in effect until Configure or ConfigureFromEnv overrides them.
const (
	DefaultPing  = 2 * time.Second
	DefaultShort = 5 * time.Second
)

var (
	mu    sync.RWMutex
	ping  = DefaultPing
	short = DefaultShort
)

// Ping returns the deadline for health and readiness checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the deadline for single-document lookups.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Config carries deadline overrides; zero fields leave the current value
// in place.
type Config struct {
	Ping  time.Duration
	Short time.Duration
}

// Configure applies the positive fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
}

// ConfigureFromEnv reads TIMEOUT_PING and TIMEOUT_SHORT as Go duration
// strings (for example "500ms" or "3s") and applies those that parse to a
// positive value. It returns how many were applied; unset, malformed, and
// non-positive values are ignored.
func ConfigureFromEnv() int {
	var cfg Config
	applied := 0
	if d, ok := envDuration("TIMEOUT_PING"); ok {
		cfg.Ping = d
		applied++
	}
	if d, ok := envDuration("TIMEOUT_SHORT"); ok {
		cfg.Short = d
		applied++
	}
	Configure(cfg)
	return applied
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// Reset restores the defaults; used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
}

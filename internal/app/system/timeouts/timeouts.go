// Package timeouts holds the per-request deadline tiers handlers use
// with context.WithTimeout.
//
// Tiers:
//   - Ping: health checks, Mongo connectivity probes
//   - Short: single-document reads (course metadata, user lookups)
//   - Medium: forum round-trips behind thread and comment requests
//   - Long: moderation actions spanning a transaction plus audit write
//
// Values can be overridden at startup through Configure or the
// TIMEOUT_* environment variables.
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Defaults applied when nothing is configured.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 15 * time.Second
	DefaultLong   = 30 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

// Ping returns the health-check deadline.
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

// Medium returns the deadline for requests that call the forum backend
// once or twice: thread and comment reads and writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the deadline for moderation actions, which run a ban
// transaction and the audit append together.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Config carries override values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure applies overrides. Call during startup, before handlers
// serve traffic.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
}

// Reset restores the defaults. For tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// and TIMEOUT_LONG as Go durations ("500ms", "20s"). Unset or invalid
// values keep the current tier. Returns how many tiers were set.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0

	set := func(name string, dst *time.Duration) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			configured++
		}
	}
	set("TIMEOUT_PING", &ping)
	set("TIMEOUT_SHORT", &short)
	set("TIMEOUT_MEDIUM", &medium)
	set("TIMEOUT_LONG", &long)

	return configured
}

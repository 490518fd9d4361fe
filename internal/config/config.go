// Package config centralizes every tunable knob: named fields with
// documented defaults, loaded from the environment once at startup.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultMaxAttempts   = 5
	DefaultVisibilityMs  = 30_000
	MaxPayloadBytes      = 512 * 1024 // 512 KiB
	MinBusyTimeoutMs     = 5_000
	BackoffBaseMs        = 1_000
	DefaultLongPollMs    = 20_000
	MaxLongPollMs        = 60_000
	DefaultReapIntervalMs = 1_000
)

// Config is constructed once at process startup from the environment.
type Config struct {
	Bind   string // SQEW_BIND
	DBPath string // SQEW_DB_PATH
	APIKey string // SQEW_API_KEY, empty disables the bearer-token gate

	BusyTimeoutMs   int64
	ReapIntervalMs  int64
	RateLimitRPS    float64 // per-queue token bucket refill rate
	RateLimitBurst  int     // per-queue token bucket burst size

	DbOptimizeIntervalMs int64

	Timeouts ServerTimeouts

	// SQEW_STRESS_* knobs, used only by load-test tooling; the engine
	// itself never reads these.
	StressEnabled    bool
	StressConsumers  int
	StressProducers  int
}

type ServerTimeouts struct {
	Write      time.Duration
	Read       time.Duration
	ReadHeader time.Duration
	Idle       time.Duration
}

// FromEnv builds a Config from the environment, falling back to documented
// defaults for anything unset.
func FromEnv() *Config {
	return &Config{
		Bind:   envOr("SQEW_BIND", "localhost:8080"),
		DBPath: envOr("SQEW_DB_PATH", "sqew.db"),
		APIKey: os.Getenv("SQEW_API_KEY"),

		BusyTimeoutMs:  envInt64Or("SQEW_BUSY_TIMEOUT_MS", MinBusyTimeoutMs),
		ReapIntervalMs: envInt64Or("SQEW_REAP_INTERVAL_MS", DefaultReapIntervalMs),
		RateLimitRPS:   envFloatOr("SQEW_RATE_LIMIT_RPS", 50),
		RateLimitBurst: int(envInt64Or("SQEW_RATE_LIMIT_BURST", 100)),

		DbOptimizeIntervalMs: envInt64Or("SQEW_DB_OPTIMIZE_INTERVAL_MS", 10*60*1000),

		Timeouts: ServerTimeouts{
			Write:      time.Duration(envInt64Or("SQEW_WRITE_TIMEOUT_MS", MaxLongPollMs+15_000)) * time.Millisecond,
			Read:       time.Duration(envInt64Or("SQEW_READ_TIMEOUT_MS", MaxLongPollMs+15_000)) * time.Millisecond,
			ReadHeader: 10 * time.Second,
			Idle:       5 * time.Minute,
		},

		StressEnabled:   os.Getenv("SQEW_STRESS_ENABLED") == "true",
		StressConsumers: int(envInt64Or("SQEW_STRESS_CONSUMERS", 0)),
		StressProducers: int(envInt64Or("SQEW_STRESS_PRODUCERS", 0)),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

package ratelimit

import (
	"time"

	"github.com/jonathan/hrms/internal/config"
)

// Tier limits the requests matching Pattern. Pattern uses the ServeMux form
// "METHOD /path"; a path ending in "/" covers everything below it.
type Tier struct {
	Pattern string
	Limit   int           // requests per Window; 0 means unlimited
	Window  time.Duration
	Burst   int // defaults to Limit
}

// LoadConfig reads RATE_LIMIT_* from the environment.
func LoadConfig() *Config {
	if !config.EnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    config.EnvInt("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   config.EnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: config.EnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTimeout:     config.EnvDuration("RATE_LIMIT_IDLE_TIMEOUT", time.Hour),
		Whitelist:       config.EnvSet("RATE_LIMIT_WHITELIST"),
		Blacklist:       config.EnvSet("RATE_LIMIT_BLACKLIST"),
		Tiers:           DefaultTiers(),
	}
}

// DefaultTiers returns the per-endpoint limits. Reads not listed here fall
// back to the default limit.
func DefaultTiers() []Tier {
	return []Tier{
		{Pattern: "GET /health"},

		// reach outside the service
		{Pattern: "POST /sync/retry", Limit: 10, Window: time.Hour, Burst: 2},
		{Pattern: "GET /interview/verify", Limit: 60, Window: time.Minute, Burst: 10},
		{Pattern: "PUT /permissions", Limit: 30, Window: time.Minute, Burst: 5},

		// workflow writes
		{Pattern: "POST /requirements", Limit: 60, Window: time.Minute, Burst: 10},
		{Pattern: "POST /requirements/", Limit: 120, Window: time.Minute, Burst: 20},
		{Pattern: "PUT /requirements/", Limit: 60, Window: time.Minute, Burst: 10},
		{Pattern: "POST /candidates/", Limit: 300, Window: time.Minute, Burst: 30},
		{Pattern: "PUT /candidates/", Limit: 120, Window: time.Minute, Burst: 20},
		{Pattern: "PUT /templates/", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

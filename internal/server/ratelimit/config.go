package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// Rule is the allowance for requests matching a path and method
type Rule struct {
	Path   string        // Path pattern; a trailing "/" matches by prefix
	Method string        // HTTP method
	Limit  int           // Requests per Window; 0 means unlimited
	Window time.Duration // Refill window
	Burst  int           // Bucket size (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled  bool
	Default  Rule
	Rules    []Rule
	IdleTTL  time.Duration   // Buckets unused for this long are dropped
	Exempt   map[string]bool // Client ids that are never limited
	Interval time.Duration   // Sweep interval; 0 disables the background sweep
}

// DefaultConfig returns the built-in limits: status reads are generous, submissions are strict.
func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		Default:  Rule{Limit: 600, Window: time.Minute},
		Rules:    DefaultRules(),
		IdleTTL:  time.Hour,
		Exempt:   map[string]bool{},
		Interval: 5 * time.Minute,
	}
}

// DefaultRules returns the endpoint-specific limits
func DefaultRules() []Rule {
	return []Rule{
		// Submissions start a full pipeline run
		{Path: "/jobs/", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		// Scrapes and probes are never limited
		{Path: "/health", Method: "GET", Limit: 0},
		{Path: "/metrics", Method: "GET", Limit: 0},
	}
}

// ConfigFromEnv applies RATE_LIMIT_ENABLED, RATE_LIMIT_PER_MINUTE and RATE_LIMIT_EXEMPT
// (comma-separated client ids) on top of DefaultConfig. Unparseable values are ignored.
func ConfigFromEnv(getenv func(string) string) *Config {
	cfg := DefaultConfig()

	if v := getenv("RATE_LIMIT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = enabled
		}
	}
	if v := getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Default.Limit = n
		}
	}
	for _, id := range strings.Split(getenv("RATE_LIMIT_EXEMPT"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.Exempt[id] = true
		}
	}
	return cfg
}

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLimiter(cfg *Config) (*Limiter, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cfg.Interval = 0
	l := NewLimiter(cfg)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := testLimiter(&Config{
		Enabled: true,
		Default: Rule{Limit: 3, Window: time.Minute},
	})

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("10.0.0.1", "/jobs/a/status", "GET")
		assert.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
	}

	allowed, info := l.Allow("10.0.0.1", "/jobs/a/status", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 20.0, info.RetryAfter.Seconds(), 1)

	// other clients have their own bucket
	allowed, _ = l.Allow("10.0.0.2", "/jobs/a/status", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	l, now := testLimiter(&Config{
		Enabled: true,
		Default: Rule{Limit: 1, Window: time.Second},
	})

	allowed, _ := l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.False(t, allowed)

	*now = now.Add(time.Second)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
}

func TestLimiter_RuleSharesBucketAcrossPaths(t *testing.T) {
	l, _ := testLimiter(&Config{
		Enabled: true,
		Default: Rule{Limit: 100, Window: time.Minute},
		Rules:   []Rule{{Path: "/jobs/", Method: "POST", Limit: 1, Window: time.Hour}},
	})

	allowed, _ := l.Allow("c", "/jobs/a/submit", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/jobs/b/submit", "POST")
	assert.False(t, allowed)

	// reads fall through to the default rule
	allowed, _ = l.Allow("c", "/jobs/a/status", "GET")
	assert.True(t, allowed)
}

func TestLimiter_UnlimitedAndExempt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default = Rule{Limit: 1, Window: time.Hour}
	cfg.Exempt["trusted"] = true
	l, _ := testLimiter(cfg)

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		assert.True(t, allowed)
		allowed, _ = l.Allow("trusted", "/jobs/a/status", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := testLimiter(&Config{Enabled: false, Default: Rule{Limit: 1, Window: time.Hour}})
	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("c", "/x", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l, now := testLimiter(&Config{
		Enabled: true,
		Default: Rule{Limit: 10, Window: time.Minute},
		IdleTTL: time.Hour,
	})
	l.Allow("old", "/x", "GET")
	*now = now.Add(2 * time.Hour)
	l.Allow("fresh", "/x", "GET")

	assert.Equal(t, 1, l.Sweep())
	assert.Len(t, l.buckets, 1)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	l.Stop()
}

func TestMatchRule(t *testing.T) {
	rules := DefaultRules()

	assert.Equal(t, 30, MatchRule("/jobs/abc/submit", "POST", rules).Limit)
	assert.Equal(t, 0, MatchRule("/health", "GET", rules).Limit)
	assert.Nil(t, MatchRule("/jobs/abc/status", "GET", rules))
	assert.Nil(t, MatchRule("/healthz", "GET", rules))
}

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_ENABLED":    "false",
		"RATE_LIMIT_PER_MINUTE": "120",
		"RATE_LIMIT_EXEMPT":     " ops , 10.0.0.9 ,",
	}
	cfg := ConfigFromEnv(func(k string) string { return env[k] })

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 120, cfg.Default.Limit)
	assert.Equal(t, map[string]bool{"ops": true, "10.0.0.9": true}, cfg.Exempt)

	defaults := ConfigFromEnv(func(string) string { return "" })
	assert.True(t, defaults.Enabled)
	assert.Equal(t, 600, defaults.Default.Limit)
}

// Package ratelimit throttles API clients with one token bucket per client and rule.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info describes the outcome of one Allow call
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages rate limiting for multiple clients.
type Limiter struct {
	config  *Config
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter. A nil config uses DefaultConfig.
// When config.Interval is set a background sweep drops idle buckets until Stop.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.Interval > 0 {
		go l.sweepLoop(config.Interval)
	}
	return l
}

// Allow reports whether a request from clientID to path may proceed and consumes a token if so.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Exempt[clientID] {
		return true, Info{Allowed: true}
	}

	// requests under one rule share a bucket per client
	rule := MatchRule(path, method, l.config.Rules)
	key := clientID + ":default"
	if rule == nil {
		rule = &l.config.Default
	} else {
		key = clientID + ":" + rule.Method + ":" + rule.Path
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	lim := l.bucketFor(key, rule, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: max(int(tokens), 0),
	}
	if !allowed {
		perSecond := float64(lim.Limit())
		if perSecond > 0 {
			info.RetryAfter = time.Duration((1 - tokens) / perSecond * float64(time.Second))
		}
	}
	return allowed, info
}

func (l *Limiter) bucketFor(key string, rule *Rule, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		burst := rule.Burst
		if burst <= 0 {
			burst = rule.Limit
		}
		every := rule.Window / time.Duration(rule.Limit)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Sweep drops buckets idle for longer than the configured TTL and returns how many were dropped
func (l *Limiter) Sweep() int {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	dropped := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			dropped++
		}
	}
	return dropped
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

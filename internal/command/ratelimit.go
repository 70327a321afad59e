// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rate limiter defaults and floors.
const (
	DefaultBurstCapacity   = 10
	DefaultSustainedRate   = 2.0
	MinSustainedRate       = 0.1
	DefaultCleanupInterval = 5 * time.Minute
	DefaultOriginMaxAge    = time.Hour
)

// RateLimiterConfig configures per-origin command throttling. Zero
// values select the defaults.
type RateLimiterConfig struct {
	// BurstCapacity is how many commands an idle origin may issue at once.
	BurstCapacity int
	// SustainedRate is the refill rate in commands per second.
	SustainedRate float64
	// CleanupInterval is how often idle origins are forgotten.
	CleanupInterval time.Duration
	// OriginMaxAge is how long an origin may stay idle before it is forgotten.
	OriginMaxAge time.Duration
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.BurstCapacity <= 0 {
		c.BurstCapacity = DefaultBurstCapacity
	}
	if c.SustainedRate <= 0 {
		c.SustainedRate = DefaultSustainedRate
	}
	c.SustainedRate = max(c.SustainedRate, MinSustainedRate)
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.OriginMaxAge <= 0 {
		c.OriginMaxAge = DefaultOriginMaxAge
	}
	return c
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterRegisterer exports the tracked origin count as
// stonehook_ratelimiter_origins on reg.
func WithLimiterRegisterer(reg prometheus.Registerer) RateLimiterOption {
	return func(rl *RateLimiter) {
		if reg == nil {
			return
		}
		rl.origins = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stonehook_ratelimiter_origins",
			Help: "Origins currently tracked by the command rate limiter",
		})
		reg.MustRegister(rl.origins)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) { rl.now = now }
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// RateLimiter is a token bucket per Origin.Key. It is safe for concurrent
// use and owns a cleanup goroutine that Close stops.
type RateLimiter struct {
	cfg RateLimiterConfig
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	origins prometheus.Gauge

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()
	return rl
}

// Allow spends one token from key's bucket. When the bucket is empty it
// reports the milliseconds until the next token.
func (rl *RateLimiter) Allow(key string) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	burst := float64(rl.cfg.BurstCapacity)
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: burst, seen: now}
		rl.buckets[key] = b
		rl.report()
	}

	b.tokens = min(burst, b.tokens+now.Sub(b.seen).Seconds()*rl.cfg.SustainedRate)
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, int64((1 - b.tokens) / rl.cfg.SustainedRate * 1000)
}

// OriginCount returns the number of tracked origins.
func (rl *RateLimiter) OriginCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Cleanup forgets origins idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for key, b := range rl.buckets {
		if b.seen.Before(threshold) {
			delete(rl.buckets, key)
		}
	}
	rl.report()
}

// report must be called with mu held.
func (rl *RateLimiter) report() {
	if rl.origins != nil {
		rl.origins.Set(float64(len(rl.buckets)))
	}
}

func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Cleanup(rl.cfg.OriginMaxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Close() {
	close(rl.stop)
	rl.wg.Wait()
}

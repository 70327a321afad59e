// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestRateLimiterConfig_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		in        RateLimiterConfig
		wantBurst int
		wantRate  float64
	}{
		{"zero values", RateLimiterConfig{}, DefaultBurstCapacity, DefaultSustainedRate},
		{"custom", RateLimiterConfig{BurstCapacity: 20, SustainedRate: 5}, 20, 5},
		{"rate clamped", RateLimiterConfig{SustainedRate: 0.01}, DefaultBurstCapacity, MinSustainedRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults()
			assert.Equal(t, tt.wantBurst, got.BurstCapacity)
			assert.InDelta(t, tt.wantRate, got.SustainedRate, 0)
			assert.Equal(t, DefaultOriginMaxAge, got.OriginMaxAge)
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 3, SustainedRate: 0.5}, WithClock(clock.Now))
	defer rl.Close()

	for i := range 3 {
		allowed, cooldown := rl.Allow("player:steve")
		assert.True(t, allowed, "command %d", i)
		assert.Zero(t, cooldown)
	}

	allowed, cooldown := rl.Allow("player:steve")
	assert.False(t, allowed)
	assert.Equal(t, int64(2000), cooldown)

	allowed, _ = rl.Allow("player:alex")
	assert.True(t, allowed, "origins have independent buckets")
	assert.Equal(t, 2, rl.OriginCount())
}

func TestRateLimiter_Refills(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 2, SustainedRate: 1}, WithClock(clock.Now))
	defer rl.Close()

	rl.Allow("k")
	rl.Allow("k")
	allowed, _ := rl.Allow("k")
	assert.False(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = rl.Allow("k")
	assert.True(t, allowed)

	clock.Advance(time.Hour)
	rl.Allow("k")
	allowed, _ = rl.Allow("k")
	assert.True(t, allowed, "refill is capped at the burst")
	allowed, _ = rl.Allow("k")
	assert.False(t, allowed)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := newClock()
	reg := prometheus.NewRegistry()
	rl := NewRateLimiter(RateLimiterConfig{}, WithClock(clock.Now), WithLimiterRegisterer(reg))
	defer rl.Close()

	rl.Allow("old")
	clock.Advance(2 * time.Hour)
	rl.Allow("fresh")
	assert.InDelta(t, 2.0, testutil.ToFloat64(rl.origins), 0)

	rl.Cleanup(time.Hour)
	assert.Equal(t, 1, rl.OriginCount())
	assert.InDelta(t, 1.0, testutil.ToFloat64(rl.origins), 0)
}

func TestRateLimiter_Concurrency(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1000})
	defer rl.Close()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				rl.Allow(string(rune('a' + i)))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, rl.OriginCount())
}

func TestRateLimiter_CloseStopsCleanupGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(RateLimiterConfig{CleanupInterval: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	rl.Close()
}

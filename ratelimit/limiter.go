// Package ratelimit is a fixed-window request limiter keyed by caller. The counters live in a
// kvstore.Store so several instances can share them.
package ratelimit

import (
	"context"
	"time"

	"github.com/jrsteele09/masapp-server/kvstore"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "ratelimit:"

// Result describes the window after counting an attempt.
type Result struct {
	Allowed    bool
	Count      int64
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when Allowed
}

// Remaining is how many more attempts the current window accepts.
func (r Result) Remaining() int {
	left := int64(r.Limit) - r.Count
	if left < 0 {
		return 0
	}
	return int(left)
}

type Limiter struct {
	store   kvstore.Store
	nowFunc func() time.Time
}

type LimiterOption func(*Limiter)

func WithNowFunc(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

func New(store kvstore.Store, options ...LimiterOption) *Limiter {
	l := &Limiter{store: store}
	for _, opt := range options {
		opt(l)
	}
	if l.nowFunc == nil {
		l.nowFunc = time.Now
	}
	return l
}

// Check counts one attempt against key. The first attempt, or the first after the window
// elapsed, opens a new window of length window. Attempts beyond max within the window are
// rejected but still counted.
//
// If the store is unavailable the attempt is allowed.
func (l *Limiter) Check(ctx context.Context, key string, max int, window time.Duration) Result {
	counter, err := l.store.Incr(ctx, keyPrefix+key, window)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, allowing request")
		return Result{Allowed: true, Limit: max}
	}

	res := Result{
		Allowed: counter.Count <= int64(max),
		Count:   counter.Count,
		Limit:   max,
		ResetAt: counter.ResetAt,
	}
	if !res.Allowed {
		res.RetryAfter = counter.ResetAt.Sub(l.nowFunc())
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}

func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) bool {
	return l.Check(ctx, key, max, window).Allowed
}

// Reset forgets the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Delete(ctx, keyPrefix+key)
}

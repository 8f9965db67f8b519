// Package kvstore is the small key/value capability shared by the revocation list and the
// rate limiter: get, set with TTL, fixed-window increment and delete. MemoryStore serves a
// single process; pgstore shares state between instances.
package kvstore

import (
	"context"
	"time"
)

// Counter is the state of a fixed-window counter after an increment.
type Counter struct {
	Count   int64
	ResetAt time.Time
}

type Store interface {
	// Get returns the value for key and whether it exists and has not expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key until ttl elapses. A zero ttl never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value under key only when key is missing or expired, and reports whether
	// it did. Exactly one of several concurrent callers for the same key gets true.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Incr increments the counter for key. A missing or elapsed counter restarts at 1
	// with a fresh window.
	Incr(ctx context.Context, key string, window time.Duration) (Counter, error)
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by stores that can drop expired entries in bulk.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func RunSweeper(ctx context.Context, s Sweeper, interval time.Duration, onSweep func(removed int, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if onSweep != nil {
				onSweep(removed, err)
			}
		}
	}
}

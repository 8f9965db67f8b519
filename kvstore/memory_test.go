package kvstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/masapp-server/kvstore"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newStore() (*kvstore.MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return kvstore.NewMemoryStore(kvstore.WithNowFunc(clock.Now)), clock
}

func TestMemoryStore_SetGetExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	clock.Advance(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, removed, "expired entry is dropped on read")
}

func TestMemoryStore_NoTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore()

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	clock.Advance(24 * 365 * time.Hour)
	_, ok, _ := s.Get(ctx, "k")
	require.True(t, ok)
}

func TestMemoryStore_IncrWindow(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore()
	start := clock.Now()

	for i := int64(1); i <= 3; i++ {
		c, err := s.Incr(ctx, "login:1.2.3.4", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, c.Count)
		require.Equal(t, start.Add(time.Minute), c.ResetAt)
	}

	clock.Advance(time.Minute)
	c, err := s.Incr(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), c.Count)
	require.Equal(t, clock.Now().Add(time.Minute), c.ResetAt)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore()

	require.NoError(t, s.Set(ctx, "short", "1", time.Second))
	require.NoError(t, s.Set(ctx, "long", "1", time.Hour))
	require.NoError(t, s.Set(ctx, "forever", "1", 0))

	clock.Advance(time.Minute)
	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	for _, k := range []string{"long", "forever"} {
		_, ok, _ := s.Get(ctx, k)
		require.True(t, ok, k)
	}
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore()

	ok, err := s.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
	v, _, _ := s.Get(ctx, "k")
	require.Equal(t, "first", v)

	clock.Advance(time.Minute)
	ok, err = s.SetNX(ctx, "k", "third", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "an expired key can be claimed again")
}

func TestMemoryStore_ConcurrentSetNX(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewMemoryStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.SetNX(ctx, "k", "v", time.Hour)
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, winners)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ := s.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemoryStore_ConcurrentIncr(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Incr(ctx, "k", time.Hour)
		}()
	}
	wg.Wait()

	c, err := s.Incr(ctx, "k", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(51), c.Count)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := kvstore.NewMemoryStore()
	swept := make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		kvstore.RunSweeper(ctx, s, 5*time.Millisecond, func(int, error) {
			select {
			case swept <- struct{}{}:
			default:
			}
		})
		close(done)
	}()

	<-swept
	cancel()
	<-done
}

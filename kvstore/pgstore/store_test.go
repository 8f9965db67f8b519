package pgstore_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/masapp-server/kvstore/pgstore"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when PGSTORE_TEST_DSN is set, e.g.
// PGSTORE_TEST_DSN="host=localhost user=postgres password=postgres dbname=masapp_test sslmode=disable"
func openTestStore(t *testing.T, now func() time.Time) *pgstore.Store {
	dsn := os.Getenv("PGSTORE_TEST_DSN")
	if dsn == "" {
		t.Skip("PGSTORE_TEST_DSN not set")
	}
	s, err := pgstore.Open(dsn, pgstore.WithNowFunc(now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	s := openTestStore(t, func() time.Time { return now })
	key := "test:" + uuid.NewString()

	require.NoError(t, s.Set(ctx, key, "v", time.Minute))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Delete(ctx, key))
}

func TestStore_IncrWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	s := openTestStore(t, func() time.Time { return now })
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	for i := int64(1); i <= 3; i++ {
		c, err := s.Incr(ctx, key, time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, c.Count)
	}

	now = now.Add(time.Minute)
	c, err := s.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), c.Count)
	require.Equal(t, now.Add(time.Minute), c.ResetAt.UTC())
}

func TestStore_SetNX(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	s := openTestStore(t, func() time.Time { return now })
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	ok, err := s.SetNX(ctx, key, "first", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetNX(ctx, key, "second", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = s.SetNX(ctx, key, "third", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_ConcurrentFirstIncr(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Now)
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Incr(ctx, key, time.Hour)
		}()
	}
	wg.Wait()

	c, err := s.Incr(ctx, key, time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(11), c.Count)
}

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-redis keeps an idle-conn reaper per pool until Close returns
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"),
	)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNewTTL_Invalid(t *testing.T) {
	_, err := NewTTL[string, int]("bad", 10, 0)
	assert.Error(t, err)

	_, err = NewTTL[string, int]("bad", 0, time.Minute)
	assert.Error(t, err)
}

func TestTTL_GetSet(t *testing.T) {
	clock := newFakeClock()
	c, err := NewTTL[string, string]("test", 4, time.Hour, WithClock(clock.Now))
	require.NoError(t, err)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "one")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "one", v)

	c.Set("a", "two")
	v, _ = c.Get("a")
	assert.Equal(t, "two", v)
	assert.Equal(t, 1, c.Len())
}

func TestTTL_Expiry(t *testing.T) {
	clock := newFakeClock()
	c, err := NewTTL[string, int]("test", 4, 6*time.Hour, WithClock(clock.Now))
	require.NoError(t, err)

	c.Set("k", 1)
	clock.Advance(6*time.Hour - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry is dead at exactly expiresAt")
	assert.Equal(t, 0, c.Len())
}

func TestTTL_EvictsOldestInserted(t *testing.T) {
	c, err := NewTTL[int, int]("test", 3, time.Hour)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		c.Set(i, i)
	}
	// reads must not refresh position
	_, _ = c.Get(1)
	c.Set(4, 4)

	_, ok := c.Get(1)
	assert.False(t, ok)
	for _, k := range []int{2, 3, 4} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d", k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestTTL_ExpiredEntriesMakeRoomFirst(t *testing.T) {
	clock := newFakeClock()
	c, err := NewTTL[string, int]("test", 2, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)

	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("live", 2)
	clock.Advance(31 * time.Second)

	c.Set("new", 3)
	_, ok := c.Get("live")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestTTL_DeleteAndPurge(t *testing.T) {
	c, err := NewTTL[string, int]("test", 10, time.Hour)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("missing")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestTTL_Concurrent(t *testing.T) {
	c, err := NewTTL[string, int]("test", 50, time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", g, i%20)
				c.Set(key, i)
				c.Get(key)
				if i%7 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	store, err := NewRedisStore("redis://"+mr.Addr(), "test_l2")
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
		mr.Close()
	})
	return store, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	_, ok, err := store.Get(ctx, "card:a1:1080")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "card:a1:1080", []byte{0x89, 'P', 'N', 'G'}, time.Hour))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"card:a1:1080"))

	b, ok, err := store.Get(ctx, "card:a1:1080")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, b)

	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Get(ctx, "card:a1:1080")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, store.Delete(ctx))

	assert.False(t, mr.Exists(DefaultKeyPrefix+"a"))
	assert.False(t, mr.Exists(DefaultKeyPrefix+"b"))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not-a-url://", "x")
	assert.Error(t, err)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store, err := NewRedisStore("redis://"+mr.Addr(), "x")
	require.NoError(t, err)
	defer store.Close()
	mr.Close()

	_, _, err = store.Get(context.Background(), "k")
	assert.Error(t, err)
}

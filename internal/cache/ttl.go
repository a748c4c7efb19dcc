// Package cache provides the bounded, expiring caches shared by the social
// card pipeline, plus an optional Redis tier for rendered bytes.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/newsroom-api/internal/metrics"
	"github.com/rs/zerolog"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a size-capped map whose entries expire after a fixed duration.
// When full, the oldest inserted entry is evicted; reads do not refresh
// an entry's position. Safe for concurrent use.
type TTL[K comparable, V any] struct {
	mu    sync.Mutex
	lru   *simplelru.LRU[K, entry[V]]
	ttl   time.Duration
	now   Clock
	name  string
	log   zerolog.Logger
	quiet bool // set while removing on purpose, so onEvict skips accounting
}

// Option configures a TTL cache
type Option func(*options)

type options struct {
	now Clock
	log zerolog.Logger
}

// WithClock overrides time.Now.
func WithClock(now Clock) Option {
	return func(o *options) { o.now = now }
}

// WithLogger attaches a logger for eviction events.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// NewTTL creates a cache holding at most size entries for ttl each.
func NewTTL[K comparable, V any](name string, size int, ttl time.Duration, opts ...Option) (*TTL[K, V], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache %s: ttl must be positive", name)
	}

	o := options{now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTL[K, V]{
		ttl:  ttl,
		now:  o.now,
		name: name,
		log:  o.log.With().Str("component", "cache").Str("cache", name).Logger(),
	}

	lru, err := simplelru.NewLRU[K, entry[V]](size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}
	c.lru = lru
	return c, nil
}

// onEvict is called by simplelru with c.mu held.
func (c *TTL[K, V]) onEvict(key K, _ entry[V]) {
	if c.quiet {
		return
	}
	metrics.RecordEviction(c.name)
	c.log.Debug().Interface("key", key).Msg("Evicted oldest entry")
}

// Get returns the live value for key.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if ok && !c.now().Before(e.expiresAt) {
		c.remove(key)
		ok = false
	}
	metrics.RecordCacheLookup(c.name, ok)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL. Re-setting a key moves it
// to the newest end.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneExpired()
	c.remove(key)
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Delete drops key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// Len returns the number of stored entries, expired ones included until
// they are next touched.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge removes every entry.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quiet = true
	c.lru.Purge()
	c.quiet = false
}

// TTL returns the configured time to live.
func (c *TTL[K, V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTL[K, V]) remove(key K) {
	c.quiet = true
	c.lru.Remove(key)
	c.quiet = false
}

// pruneExpired drops expired entries from the oldest end so they never
// push out live ones.
func (c *TTL[K, V]) pruneExpired() {
	now := c.now()
	for {
		k, e, ok := c.lru.GetOldest()
		if !ok || now.Before(e.expiresAt) {
			return
		}
		c.remove(k)
	}
}

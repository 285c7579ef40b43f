package cache

import "time"

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithSnapshotTTL sets the lifetime of cached snapshots.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.snapshotTTL = ttl
		}
	}
}

// WithCounterTTL sets the idle lifetime of point-lookup counters.
func WithCounterTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.counterTTL = ttl
		}
	}
}

// WithJanitorInterval sets the background eviction cadence.
func WithJanitorInterval(interval time.Duration) Option {
	return func(c *Cache) {
		if interval > 0 {
			c.janitorTick = interval
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

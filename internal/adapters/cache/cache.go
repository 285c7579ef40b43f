// Package cache is the hot, volatile counter and snapshot layer.
//
// Two TTL tiers by design: point-lookup counters (per battle and per
// participant) live on a longer idle TTL and answer the hot click
// path; recomputed battle snapshots live on a short TTL so ranking
// work is amortized across reads instead of done per click.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// Default TTL tiers.
const (
	defaultSnapshotTTL     = 5 * time.Second
	defaultCounterTTL      = 60 * time.Second
	defaultJanitorInterval = 30 * time.Second
)

// Key builders keep cache key naming in one governed place.

// ParticipantKey names the running click counter of one participant.
func ParticipantKey(battleID, participantID string) string {
	return "battle:" + battleID + ":participant:" + participantID + ":clicks"
}

// BattleKey names the running click counter of a whole battle.
func BattleKey(battleID string) string {
	return "battle:" + battleID + ":clicks"
}

type counterEntry struct {
	value     int64
	expiresAt time.Time
}

type snapshotEntry struct {
	snapshot    model.BattleSnapshot
	fingerprint string
	expiresAt   time.Time
}

// Cache holds the volatile counters and snapshot projections.
type Cache struct {
	mu        sync.RWMutex
	counters  map[string]*counterEntry
	snapshots map[string]*snapshotEntry

	counterTTL  time.Duration
	snapshotTTL time.Duration
	janitorTick time.Duration
	now         func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache and starts its expiry janitor.
func New(opts ...Option) *Cache {
	c := &Cache{
		counters:    make(map[string]*counterEntry),
		snapshots:   make(map[string]*snapshotEntry),
		counterTTL:  defaultCounterTTL,
		snapshotTTL: defaultSnapshotTTL,
		janitorTick: defaultJanitorInterval,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.janitor()
	return c
}

// IncrCounter atomically adds delta to a counter, refreshing its TTL,
// and returns the new value. An expired counter restarts from zero.
func (c *Cache) IncrCounter(key string, delta int64) int64 {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.counters[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &counterEntry{}
		c.counters[key] = entry
	}
	entry.value += delta
	entry.expiresAt = now.Add(c.counterTTL)
	return entry.value
}

// SetCounter overwrites a counter value, refreshing its TTL.
// Used by reconciliation to align counters with the durable sums.
func (c *Cache) SetCounter(key string, value int64) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key] = &counterEntry{value: value, expiresAt: now.Add(c.counterTTL)}
}

// GetCounter reads a counter; ok is false for unknown or expired keys.
func (c *Cache) GetCounter(key string) (int64, bool) {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.counters[key]
	if !ok || now.After(entry.expiresAt) {
		return 0, false
	}
	return entry.value, true
}

// SetSnapshot stores a recomputed snapshot with its fingerprint.
func (c *Cache) SetSnapshot(battleID string, snap model.BattleSnapshot, fingerprint string) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[battleID] = &snapshotEntry{
		snapshot:    snap,
		fingerprint: fingerprint,
		expiresAt:   now.Add(c.snapshotTTL),
	}
}

// GetSnapshot reads a cached snapshot; ok is false on miss or expiry.
func (c *Cache) GetSnapshot(battleID string) (model.BattleSnapshot, string, bool) {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.snapshots[battleID]
	if !ok || now.After(entry.expiresAt) {
		return model.BattleSnapshot{}, "", false
	}
	return entry.snapshot, entry.fingerprint, true
}

// Invalidate drops the cached snapshot of a battle.
func (c *Cache) Invalidate(battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, battleID)
}

// janitor evicts expired entries so idle battles don't pin memory.
func (c *Cache) janitor() {
	ticker := time.NewTicker(c.janitorTick)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.counters {
		if now.After(entry.expiresAt) {
			delete(c.counters, key)
		}
	}
	for key, entry := range c.snapshots {
		if now.After(entry.expiresAt) {
			delete(c.snapshots, key)
		}
	}
}

// Close stops the janitor.
func (c *Cache) Close(_ context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

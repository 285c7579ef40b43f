// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the event store backend: memory, sqlite, postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the driver-specific data source name
	// (file path for sqlite, connection string for postgres).
	StoreDSN string `koanf:"store_dsn"`

	// QueueSize bounds the in-memory click flush queue.
	QueueSize int `koanf:"queue_size"`

	// FlushWorkerCount sets the number of durable-append workers.
	FlushWorkerCount int `koanf:"flush_worker_count"`

	// FlushRetryMax caps append retries before an event is dropped.
	FlushRetryMax int `koanf:"flush_retry_max"`

	// FlushBackoffMinMS and FlushBackoffMaxMS bound the append retry backoff.
	FlushBackoffMinMS int `koanf:"flush_backoff_min_ms"`
	FlushBackoffMaxMS int `koanf:"flush_backoff_max_ms"`

	// RefreshEveryClicks schedules a snapshot recompute after every Nth
	// click of a participant.
	RefreshEveryClicks int `koanf:"refresh_every_clicks"`

	// SnapshotTTLSeconds is the lifetime of a cached battle snapshot.
	SnapshotTTLSeconds int `koanf:"snapshot_ttl_seconds"`

	// CounterTTLSeconds is the lifetime of idle point-lookup counters.
	CounterTTLSeconds int `koanf:"counter_ttl_seconds"`

	// PollTimeoutSeconds bounds a long-poll wait.
	PollTimeoutSeconds int `koanf:"poll_timeout_seconds"`

	// PollIntervalMS is the snapshot re-check interval while polling.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// LeaderboardSize caps the ranked participant list in snapshots.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// BattleDurationSeconds is the default length of a battle.
	BattleDurationSeconds int `koanf:"battle_duration_seconds"`

	// DuplicateCosmeticCoins is the compensation paid when a resolved
	// cosmetic is already owned.
	DuplicateCosmeticCoins int64 `koanf:"duplicate_cosmetic_coins"`

	// InitialBalanceCoins is the starting wallet balance of a new player.
	InitialBalanceCoins int64 `koanf:"initial_balance_coins"`

	// SeedCatalog seeds the default container catalog on startup.
	SeedCatalog bool `koanf:"seed_catalog"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		StoreDriver:            "memory",
		StoreDSN:               "clickarena.db",
		QueueSize:              100_000,
		FlushWorkerCount:       runtime.NumCPU() * 2,
		FlushRetryMax:          5,
		FlushBackoffMinMS:      50,
		FlushBackoffMaxMS:      2_000,
		RefreshEveryClicks:     10,
		SnapshotTTLSeconds:     5,
		CounterTTLSeconds:      60,
		PollTimeoutSeconds:     30,
		PollIntervalMS:         500,
		LeaderboardSize:        50,
		BattleDurationSeconds:  60,
		DuplicateCosmeticCoins: 50,
		InitialBalanceCoins:    500,
		SeedCatalog:            true,
	}
}

// Package eventstore is the durable, append-only record of clicks and
// loot redemptions. Nothing in the service ever mutates an existing
// record; reconciliation reads back aggregated sums as ground truth.
package eventstore

import (
	"context"
	"fmt"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// ParticipantTotal is the summed click count of one participant,
// computed from the event log.
type ParticipantTotal struct {
	ParticipantID string
	Clicks        int64
}

// Store provides the append/query operations the core depends on.
type Store interface {
	// AppendClick durably records one click event.
	AppendClick(ctx context.Context, e model.ClickEvent) error

	// AppendRedemption durably records one container opening.
	AppendRedemption(ctx context.Context, rec model.RedemptionRecord) error

	// ClickTotals sums click deltas per participant for a battle.
	ClickTotals(ctx context.Context, battleID string) ([]ParticipantTotal, error)

	// RedemptionsByPlayer returns a player's most recent openings,
	// newest first, capped at limit.
	RedemptionsByPlayer(ctx context.Context, playerID string, limit int) ([]model.RedemptionRecord, error)

	// Close releases backend resources.
	Close() error
}

// Open constructs a Store for the configured driver.
// Supported drivers: memory, sqlite, postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

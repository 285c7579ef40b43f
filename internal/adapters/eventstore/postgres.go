package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/pawlik/clickarena/internal/domain/model"
)

// PostgresStore persists events in PostgreSQL for multi-node setups.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens (and bootstraps) a Postgres-backed store.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS click_events (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT NOT NULL,
			battle_id TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			delta BIGINT NOT NULL,
			client_ts BIGINT NOT NULL,
			session_tag TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_click_events_battle ON click_events(battle_id)`,
		`CREATE TABLE IF NOT EXISTS redemptions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			container_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			is_rare BOOLEAN NOT NULL DEFAULT FALSE,
			opened_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_redemptions_player ON redemptions(player_id, opened_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap postgres schema: %w", err)
		}
	}
	return nil
}

// AppendClick durably records one click event.
func (s *PostgresStore) AppendClick(ctx context.Context, e model.ClickEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO click_events (event_id, battle_id, participant_id, delta, client_ts, session_tag)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.EventID, e.BattleID, e.ParticipantID, e.Delta, e.ClientTS.UnixMilli(), e.SessionTag)
	if err != nil {
		return fmt.Errorf("append click: %w", err)
	}
	return nil
}

// AppendRedemption durably records one container opening.
func (s *PostgresStore) AppendRedemption(ctx context.Context, rec model.RedemptionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO redemptions (id, player_id, container_id, kind, value, is_rare, opened_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.PlayerID, rec.ContainerID, string(rec.Kind), rec.Value, rec.IsRare, rec.OpenedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append redemption: %w", err)
	}
	return nil
}

// ClickTotals sums click deltas per participant for a battle.
func (s *PostgresStore) ClickTotals(ctx context.Context, battleID string) ([]ParticipantTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, COALESCE(SUM(delta), 0)
		 FROM click_events
		 WHERE battle_id = $1
		 GROUP BY participant_id
		 ORDER BY SUM(delta) DESC, participant_id ASC`, battleID)
	if err != nil {
		return nil, fmt.Errorf("click totals: %w", err)
	}
	defer rows.Close()

	var totals []ParticipantTotal
	for rows.Next() {
		var t ParticipantTotal
		if err := rows.Scan(&t.ParticipantID, &t.Clicks); err != nil {
			return nil, fmt.Errorf("scan click totals: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("click totals rows: %w", err)
	}
	return totals, nil
}

// RedemptionsByPlayer returns a player's openings, newest first.
func (s *PostgresStore) RedemptionsByPlayer(ctx context.Context, playerID string, limit int) ([]model.RedemptionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_id, container_id, kind, value, is_rare, opened_at
		 FROM redemptions
		 WHERE player_id = $1
		 ORDER BY opened_at DESC
		 LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("redemptions by player: %w", err)
	}
	defer rows.Close()

	return scanRedemptions(rows)
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

package eventstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/pawlik/clickarena/internal/domain/model"
)

// SQLiteStore persists events in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and bootstraps) a SQLite-backed store.
// WAL mode plus a busy timeout keeps concurrent flush workers from
// tripping over the single writer.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has a single writer; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS click_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			battle_id TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			delta INTEGER NOT NULL,
			client_ts INTEGER NOT NULL,
			session_tag TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_click_events_battle ON click_events(battle_id)`,
		`CREATE TABLE IF NOT EXISTS redemptions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			container_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			is_rare INTEGER NOT NULL DEFAULT 0,
			opened_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_redemptions_player ON redemptions(player_id, opened_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite schema: %w", err)
		}
	}
	return nil
}

// AppendClick durably records one click event.
func (s *SQLiteStore) AppendClick(ctx context.Context, e model.ClickEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO click_events (event_id, battle_id, participant_id, delta, client_ts, session_tag)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, e.BattleID, e.ParticipantID, e.Delta, e.ClientTS.UnixMilli(), e.SessionTag)
	if err != nil {
		return fmt.Errorf("append click: %w", err)
	}
	return nil
}

// AppendRedemption durably records one container opening.
func (s *SQLiteStore) AppendRedemption(ctx context.Context, rec model.RedemptionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO redemptions (id, player_id, container_id, kind, value, is_rare, opened_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlayerID, rec.ContainerID, string(rec.Kind), rec.Value, rec.IsRare, rec.OpenedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append redemption: %w", err)
	}
	return nil
}

// ClickTotals sums click deltas per participant for a battle.
func (s *SQLiteStore) ClickTotals(ctx context.Context, battleID string) ([]ParticipantTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, COALESCE(SUM(delta), 0)
		 FROM click_events
		 WHERE battle_id = ?
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
func (s *SQLiteStore) RedemptionsByPlayer(ctx context.Context, playerID string, limit int) ([]model.RedemptionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_id, container_id, kind, value, is_rare, opened_at
		 FROM redemptions
		 WHERE player_id = ?
		 ORDER BY opened_at DESC
		 LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("redemptions by player: %w", err)
	}
	defer rows.Close()

	return scanRedemptions(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

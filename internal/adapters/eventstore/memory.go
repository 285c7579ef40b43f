package eventstore

import (
	"context"
	"sort"
	"sync"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// MemoryStore is an in-process Store for tests and single-node runs
// without durability requirements.
type MemoryStore struct {
	mu          sync.RWMutex
	clicks      []model.ClickEvent
	redemptions []model.RedemptionRecord
	closed      bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendClick records one click event.
func (s *MemoryStore) AppendClick(_ context.Context, e model.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.clicks = append(s.clicks, e)
	return nil
}

// AppendRedemption records one container opening.
func (s *MemoryStore) AppendRedemption(_ context.Context, rec model.RedemptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.redemptions = append(s.redemptions, rec)
	return nil
}

// ClickTotals sums click deltas per participant for a battle.
func (s *MemoryStore) ClickTotals(_ context.Context, battleID string) ([]ParticipantTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	sums := make(map[string]int64)
	for _, e := range s.clicks {
		if e.BattleID == battleID {
			sums[e.ParticipantID] += e.Delta
		}
	}

	totals := make([]ParticipantTotal, 0, len(sums))
	for id, clicks := range sums {
		totals = append(totals, ParticipantTotal{ParticipantID: id, Clicks: clicks})
	}
	// Clicks descending, participant id ascending on ties.
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Clicks != totals[j].Clicks {
			return totals[i].Clicks > totals[j].Clicks
		}
		return totals[i].ParticipantID < totals[j].ParticipantID
	})
	return totals, nil
}

// RedemptionsByPlayer returns a player's openings, newest first.
func (s *MemoryStore) RedemptionsByPlayer(_ context.Context, playerID string, limit int) ([]model.RedemptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []model.RedemptionRecord
	for i := len(s.redemptions) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.redemptions[i].PlayerID == playerID {
			out = append(out, s.redemptions[i])
		}
	}
	return out, nil
}

// ClickCount reports the number of stored click events (test helper).
func (s *MemoryStore) ClickCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clicks)
}

// Close marks the store closed; later appends fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

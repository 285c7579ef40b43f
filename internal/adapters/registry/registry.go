// Package registry keeps battles and their participants in memory and
// owns the battle lifecycle. All transitions are server-driven:
// waiting -> active -> finished, never backwards and never client-set.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/pkg/metrics"
)

const (
	defaultDuration = 60 * time.Second
	maxFighters     = 2
)

type battleRecord struct {
	battle       model.Battle
	createdBy    string
	participants map[string]*model.Participant
}

// Registry is the in-memory battle store.
type Registry struct {
	mu      sync.RWMutex
	battles map[string]*battleRecord
	now     func() time.Time

	defaultDuration time.Duration
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDefaultDuration sets the battle length used when a caller
// requests none.
func WithDefaultDuration(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.defaultDuration = d
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		battles:         make(map[string]*battleRecord),
		now:             time.Now,
		defaultDuration: defaultDuration,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateBattle opens a waiting battle with its creator as the first
// participant.
func (r *Registry) CreateBattle(playerID string, duration time.Duration) (model.Battle, model.Participant) {
	if duration <= 0 {
		duration = r.defaultDuration
	}
	now := r.now()

	battle := model.Battle{
		ID:        uuid.NewString(),
		Status:    model.StatusWaiting,
		CreatedAt: now,
		Duration:  duration,
	}
	creator := &model.Participant{
		ID:       uuid.NewString(),
		BattleID: battle.ID,
		PlayerID: playerID,
		IsReady:  true,
		JoinedAt: now,
	}

	r.mu.Lock()
	r.battles[battle.ID] = &battleRecord{
		battle:       battle,
		createdBy:    playerID,
		participants: map[string]*model.Participant{creator.ID: creator},
	}
	active := r.activeLocked()
	r.mu.Unlock()

	metrics.UpdateActiveBattles(active)
	return battle, *creator
}

// JoinBattle adds a player to a waiting battle. The second distinct
// player activates the battle and stamps its start time. Joining a
// battle the player is already in returns the existing participant.
func (r *Registry) JoinBattle(battleID, playerID string) (model.Battle, model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.battles[battleID]
	if !ok {
		return model.Battle{}, model.Participant{}, ErrBattleNotFound
	}
	if rec.battle.Status == model.StatusFinished {
		return model.Battle{}, model.Participant{}, ErrBattleFinished
	}
	for _, p := range rec.participants {
		if p.PlayerID == playerID {
			return rec.battle, *p, nil
		}
	}
	if len(rec.participants) >= maxFighters {
		return model.Battle{}, model.Participant{}, ErrBattleFull
	}

	now := r.now()
	joiner := &model.Participant{
		ID:       uuid.NewString(),
		BattleID: battleID,
		PlayerID: playerID,
		IsReady:  true,
		JoinedAt: now,
	}
	rec.participants[joiner.ID] = joiner

	if rec.battle.Status == model.StatusWaiting && len(rec.participants) == maxFighters {
		rec.battle.Status = model.StatusActive
		rec.battle.StartedAt = now
	}

	metrics.UpdateActiveBattles(r.activeLocked())
	return rec.battle, *joiner, nil
}

// EnsureParticipant returns the participant, creating it lazily when a
// click arrives for an id the battle has not seen. Lazily created
// participants are not marked ready; the player id mirrors the
// participant id until an explicit join upgrades it.
func (r *Registry) EnsureParticipant(battleID, participantID string) (model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.battles[battleID]
	if !ok {
		return model.Participant{}, ErrBattleNotFound
	}
	if rec.battle.Status == model.StatusFinished {
		return model.Participant{}, ErrBattleFinished
	}
	if p, ok := rec.participants[participantID]; ok {
		return *p, nil
	}

	p := &model.Participant{
		ID:       participantID,
		BattleID: battleID,
		PlayerID: participantID,
		JoinedAt: r.now(),
	}
	rec.participants[participantID] = p
	return *p, nil
}

// Battle returns a battle by id.
func (r *Registry) Battle(battleID string) (model.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.battles[battleID]
	if !ok {
		return model.Battle{}, ErrBattleNotFound
	}
	return rec.battle, nil
}

// Participants lists a battle's participants ordered by join time,
// then id, so ranking ties resolve to the earliest fighter.
func (r *Registry) Participants(battleID string) ([]model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	out := make([]model.Participant, 0, len(rec.participants))
	for _, p := range rec.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindOpponent joins the oldest waiting battle created by someone
// else. Reports found=false when no such battle exists.
func (r *Registry) FindOpponent(playerID string) (model.Battle, model.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *battleRecord
	for _, rec := range r.battles {
		if rec.battle.Status != model.StatusWaiting || rec.createdBy == playerID {
			continue
		}
		if len(rec.participants) >= maxFighters {
			continue
		}
		if oldest == nil || rec.battle.CreatedAt.Before(oldest.battle.CreatedAt) {
			oldest = rec
		}
	}
	if oldest == nil {
		return model.Battle{}, model.Participant{}, false
	}

	now := r.now()
	joiner := &model.Participant{
		ID:       uuid.NewString(),
		BattleID: oldest.battle.ID,
		PlayerID: playerID,
		IsReady:  true,
		JoinedAt: now,
	}
	oldest.participants[joiner.ID] = joiner
	if len(oldest.participants) == maxFighters {
		oldest.battle.Status = model.StatusActive
		oldest.battle.StartedAt = now
	}

	metrics.UpdateActiveBattles(r.activeLocked())
	return oldest.battle, *joiner, true
}

// RecordScore updates a participant's click and score tallies from a
// snapshot refresh.
func (r *Registry) RecordScore(battleID, participantID string, clicks, score int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.battles[battleID]
	if !ok {
		return ErrBattleNotFound
	}
	p, ok := rec.participants[participantID]
	if !ok {
		return ErrParticipantNotFound
	}
	p.Clicks = clicks
	p.Score = score
	return nil
}

// Finish closes a battle and stamps the winner. Finishing a finished
// battle is a no-op.
func (r *Registry) Finish(battleID, winnerID string) (model.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.battles[battleID]
	if !ok {
		return model.Battle{}, ErrBattleNotFound
	}
	if rec.battle.Status == model.StatusFinished {
		return rec.battle, nil
	}
	rec.battle.Status = model.StatusFinished
	rec.battle.FinishedAt = r.now()
	rec.battle.WinnerID = winnerID

	metrics.UpdateActiveBattles(r.activeLocked())
	return rec.battle, nil
}

// Expired lists active battles whose clock has run out at now.
func (r *Registry) Expired(now time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, rec := range r.battles {
		if rec.battle.Expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Counts reports battles per lifecycle state.
func (r *Registry) Counts() (waiting, active, finished int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.battles {
		switch rec.battle.Status {
		case model.StatusWaiting:
			waiting++
		case model.StatusActive:
			active++
		case model.StatusFinished:
			finished++
		}
	}
	return waiting, active, finished
}

func (r *Registry) activeLocked() int {
	active := 0
	for _, rec := range r.battles {
		if rec.battle.Status == model.StatusActive {
			active++
		}
	}
	return active
}

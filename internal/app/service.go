// Package app wires the battle subsystem together: click ingestion,
// counter/snapshot caching, fan-out, battle lifecycle and container
// redemption.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pawlik/clickarena/internal/adapters/cache"
	"github.com/pawlik/clickarena/internal/adapters/catalog"
	"github.com/pawlik/clickarena/internal/adapters/eventstore"
	"github.com/pawlik/clickarena/internal/adapters/hub"
	"github.com/pawlik/clickarena/internal/adapters/mq/queue"
	"github.com/pawlik/clickarena/internal/adapters/mq/worker"
	"github.com/pawlik/clickarena/internal/adapters/registry"
	"github.com/pawlik/clickarena/internal/adapters/wallet"
	"github.com/pawlik/clickarena/internal/config"
	"github.com/pawlik/clickarena/internal/domain/loot"
	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/internal/domain/redeem"
	"github.com/pawlik/clickarena/pkg/logger"
	"github.com/pawlik/clickarena/pkg/metrics"
)

// battleClockTick is how often expired battles are swept.
const battleClockTick = time.Second

// Service is the battle subsystem facade the transport layer calls.
type Service struct {
	cfg   *config.Config
	store eventstore.Store

	cache      *cache.Cache
	hub        *hub.Hub
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	registry   *registry.Registry
	funds      *wallet.Wallet
	inventory  *wallet.Inventory
	containers *catalog.Catalog
	redeemer   *redeem.Redeemer

	refreshGroup singleflight.Group

	now       func() time.Time
	clockTick time.Duration
	logger    logger.Logger

	started   bool
	stopOnce  sync.Once
	stop      chan struct{}
	clockDone chan struct{}
}

type snapshotResult struct {
	snapshot    model.BattleSnapshot
	fingerprint string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBattleClockTick overrides the expiry sweep interval.
func WithBattleClockTick(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.clockTick = d
		}
	}
}

// New builds the service around a durable store.
func New(cfg *config.Config, store eventstore.Store, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		store:     store,
		now:       time.Now,
		clockTick: battleClockTick,
		logger:    logger.Get().Named("service"),
		stop:      make(chan struct{}),
		clockDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cache = cache.New(
		cache.WithSnapshotTTL(time.Duration(cfg.SnapshotTTLSeconds)*time.Second),
		cache.WithCounterTTL(time.Duration(cfg.CounterTTLSeconds)*time.Second),
		cache.WithClock(s.now),
	)
	s.hub = hub.New()
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
	s.pool = worker.NewPool(cfg.FlushWorkerCount, s.queue, store,
		worker.WithRetryPolicy(
			cfg.FlushRetryMax,
			time.Duration(cfg.FlushBackoffMinMS)*time.Millisecond,
			time.Duration(cfg.FlushBackoffMaxMS)*time.Millisecond,
		),
		worker.WithLogger(s.logger),
	)
	s.registry = registry.New(
		registry.WithClock(s.now),
		registry.WithDefaultDuration(time.Duration(cfg.BattleDurationSeconds)*time.Second),
	)
	s.funds = wallet.New(wallet.WithInitialBalance(cfg.InitialBalanceCoins))
	s.inventory = wallet.NewInventory()
	s.containers = catalog.New()
	s.redeemer = redeem.New(s.containers, s.funds, s.inventory, loot.NewResolver(), store,
		redeem.WithCompensation(cfg.DuplicateCosmeticCoins),
		redeem.WithClock(s.now),
		redeem.WithLogger(s.logger),
	)
	return s
}

// Start seeds the catalog, launches the flush workers and the battle
// clock.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.SeedCatalog {
		if err := s.containers.Seed(); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	s.pool.Start(ctx)
	s.started = true
	go s.battleClock(ctx)
	s.logger.Info(ctx, "service started",
		logger.Int("flushWorkers", s.cfg.FlushWorkerCount),
		logger.Int("queueSize", s.cfg.QueueSize),
	)
	return nil
}

// Stop shuts the service down, draining what it can.
func (s *Service) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started {
		select {
		case <-s.clockDone:
		case <-ctx.Done():
		}
	}
	_ = s.queue.Close()
	s.pool.Stop()
	s.hub.Close()
	_ = s.cache.Close(ctx)
	s.logger.Info(ctx, "service stopped")
	return nil
}

// CreateBattle opens a waiting battle owned by the player.
func (s *Service) CreateBattle(playerID string, durationSeconds int) (model.Battle, model.Participant) {
	return s.registry.CreateBattle(playerID, time.Duration(durationSeconds)*time.Second)
}

// JoinBattle adds the player and returns a fresh snapshot.
func (s *Service) JoinBattle(ctx context.Context, battleID, playerID string) (model.BattleSnapshot, model.Participant, error) {
	_, participant, err := s.registry.JoinBattle(battleID, playerID)
	if err != nil {
		return model.BattleSnapshot{}, model.Participant{}, err
	}
	s.cache.Invalidate(battleID)
	snap, _, err := s.GetSnapshot(ctx, battleID)
	if err != nil {
		return model.BattleSnapshot{}, model.Participant{}, err
	}
	return snap, participant, nil
}

// FindOpponent matches the player into the oldest open battle.
func (s *Service) FindOpponent(playerID string) (model.Battle, model.Participant, bool) {
	battle, participant, found := s.registry.FindOpponent(playerID)
	if found {
		s.cache.Invalidate(battle.ID)
	}
	return battle, participant, found
}

// Battle returns the raw battle state by id.
func (s *Service) Battle(battleID string) (model.Battle, error) {
	return s.registry.Battle(battleID)
}

// RecordClick ingests one click burst and returns the participant and
// battle running totals. Deltas below one coerce to one.
func (s *Service) RecordClick(ctx context.Context, battleID, participantID string, delta int64, clientTS time.Time, session string) (int64, int64, error) {
	if _, err := s.registry.EnsureParticipant(battleID, participantID); err != nil {
		return 0, 0, err
	}

	if delta < 1 {
		delta = 1
		metrics.RecordClickCoerced()
	}

	participantTotal := s.cache.IncrCounter(cache.ParticipantKey(battleID, participantID), delta)
	battleTotal := s.cache.IncrCounter(cache.BattleKey(battleID), delta)
	metrics.RecordClick()

	event := model.ClickEvent{
		EventID:       uuid.NewString(),
		BattleID:      battleID,
		ParticipantID: participantID,
		Delta:         delta,
		ClientTS:      clientTS,
		SessionTag:    session,
	}
	if !s.queue.Enqueue(ctx, event) {
		// Queue full or closing: one synchronous best-effort append so
		// a durability hiccup costs at most this event, not the hot path.
		if err := s.store.AppendClick(ctx, event); err != nil {
			metrics.RecordFlushDropped()
			s.logger.Warn(ctx, "click event lost: queue full and sync append failed",
				logger.String("battleID", battleID),
				logger.Error(err),
			)
		}
	}

	s.hub.Publish(battleID, model.Delta{
		Type:          model.DeltaClickUpdate,
		ParticipantID: participantID,
		ClickDelta:    delta,
		ClientTS:      clientTS,
	})

	if s.cfg.RefreshEveryClicks > 0 && participantTotal%int64(s.cfg.RefreshEveryClicks) == 0 {
		go func() {
			if _, _, err := s.refresh(context.WithoutCancel(ctx), battleID); err != nil {
				s.logger.Warn(ctx, "scheduled snapshot refresh failed",
					logger.String("battleID", battleID),
					logger.Error(err),
				)
			}
		}()
	}

	return participantTotal, battleTotal, nil
}

// GetSnapshot returns the cached battle snapshot, recomputing on miss.
// Concurrent misses for one battle collapse into a single recompute.
func (s *Service) GetSnapshot(ctx context.Context, battleID string) (model.BattleSnapshot, string, error) {
	if snap, fp, ok := s.cache.GetSnapshot(battleID); ok {
		metrics.RecordSnapshotHit()
		return snap, fp, nil
	}
	metrics.RecordSnapshotMiss()
	return s.refresh(ctx, battleID)
}

// Invalidate drops the cached snapshot so the next read recomputes.
func (s *Service) Invalidate(battleID string) {
	s.cache.Invalidate(battleID)
}

// RefreshSnapshot forces a recompute from the durable totals.
func (s *Service) RefreshSnapshot(ctx context.Context, battleID string) (model.BattleSnapshot, string, error) {
	return s.refresh(ctx, battleID)
}

func (s *Service) refresh(ctx context.Context, battleID string) (model.BattleSnapshot, string, error) {
	v, err, _ := s.refreshGroup.Do(battleID, func() (interface{}, error) {
		start := time.Now()
		res, err := s.recompute(ctx, battleID)
		if err != nil {
			return nil, err
		}
		metrics.RecordSnapshotRefresh()
		metrics.RecordSnapshotRefreshDuration(float64(time.Since(start).Milliseconds()))
		return res, nil
	})
	if err != nil {
		return model.BattleSnapshot{}, "", err
	}
	res := v.(snapshotResult)
	return res.snapshot, res.fingerprint, nil
}

// recompute rebuilds a snapshot from the event log sums, overlaying
// any larger in-memory counter so unflushed clicks stay visible, then
// writes the counters back so both layers agree.
func (s *Service) recompute(ctx context.Context, battleID string) (snapshotResult, error) {
	battle, err := s.registry.Battle(battleID)
	if err != nil {
		return snapshotResult{}, err
	}
	participants, err := s.registry.Participants(battleID)
	if err != nil {
		return snapshotResult{}, err
	}
	totals, err := s.store.ClickTotals(ctx, battleID)
	if err != nil {
		return snapshotResult{}, fmt.Errorf("click totals for %q: %w", battleID, err)
	}
	durable := make(map[string]int64, len(totals))
	for _, t := range totals {
		durable[t.ParticipantID] = t.Clicks
	}

	entries := make([]model.SnapshotEntry, 0, len(participants))
	var totalClicks int64
	for _, p := range participants {
		clicks := durable[p.ID]
		if hot, ok := s.cache.GetCounter(cache.ParticipantKey(battleID, p.ID)); ok && hot > clicks {
			clicks = hot
		}
		totalClicks += clicks
		entries = append(entries, model.SnapshotEntry{
			ParticipantID: p.ID,
			PlayerID:      p.PlayerID,
			Clicks:        clicks,
			Score:         clicks,
			IsReady:       p.IsReady,
		})
	}

	// Rank by clicks descending; the stable sort keeps join order for
	// ties, so the earliest participant wins them.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Clicks > entries[j].Clicks
	})
	if s.cfg.LeaderboardSize > 0 && len(entries) > s.cfg.LeaderboardSize {
		entries = entries[:s.cfg.LeaderboardSize]
	}

	snap := model.BattleSnapshot{
		BattleID:        battleID,
		Status:          battle.Status,
		Participants:    entries,
		TotalClicks:     totalClicks,
		TimeLeftSeconds: battle.TimeLeft(s.now()),
		GeneratedAt:     s.now(),
	}
	if len(entries) > 0 {
		snap.TopScore = entries[0].Score
		snap.TopParticipantID = entries[0].ParticipantID
	}
	fingerprint := fingerprintOf(snap)

	s.cache.SetSnapshot(battleID, snap, fingerprint)
	s.cache.SetCounter(cache.BattleKey(battleID), totalClicks)
	for _, e := range entries {
		s.cache.SetCounter(cache.ParticipantKey(battleID, e.ParticipantID), e.Clicks)
		if err := s.registry.RecordScore(battleID, e.ParticipantID, e.Clicks, e.Score); err != nil {
			s.logger.Warn(ctx, "score writeback failed",
				logger.String("battleID", battleID),
				logger.String("participantID", e.ParticipantID),
				logger.Error(err),
			)
		}
	}
	return snapshotResult{snapshot: snap, fingerprint: fingerprint}, nil
}

// fingerprintOf hashes the parts of a snapshot that matter for change
// detection. Clock-derived fields stay out so an unchanged battle
// keeps an unchanged fingerprint.
func fingerprintOf(snap model.BattleSnapshot) string {
	canonical := struct {
		Status       model.BattleStatus    `json:"status"`
		Participants []model.SnapshotEntry `json:"participants"`
		TotalClicks  int64                 `json:"totalClicks"`
	}{snap.Status, snap.Participants, snap.TotalClicks}

	payload, _ := json.Marshal(canonical)
	h := fnv.New64a()
	_, _ = h.Write(payload)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Poll blocks until the battle's fingerprint moves past the one the
// caller already has, or the poll window runs out.
func (s *Service) Poll(ctx context.Context, battleID, fingerprint string) (model.BattleSnapshot, string, bool, error) {
	metrics.RecordPollRequest()

	snap, fp, err := s.GetSnapshot(ctx, battleID)
	if err != nil {
		return model.BattleSnapshot{}, "", false, err
	}
	if fp != fingerprint {
		metrics.RecordPollWakeup()
		return snap, fp, true, nil
	}

	interval := time.Duration(s.cfg.PollIntervalMS) * time.Millisecond
	timeout := time.Duration(s.cfg.PollTimeoutSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return snap, fp, false, ctx.Err()
		case <-s.stop:
			return snap, fp, false, nil
		case <-deadline.C:
			metrics.RecordPollTimeout()
			return snap, fp, false, nil
		case <-ticker.C:
			snap, fp, err = s.GetSnapshot(ctx, battleID)
			if err != nil {
				return model.BattleSnapshot{}, "", false, err
			}
			if fp != fingerprint {
				metrics.RecordPollWakeup()
				return snap, fp, true, nil
			}
		}
	}
}

// Subscribe registers a push-mode viewer and returns the snapshot to
// send before any delta.
func (s *Service) Subscribe(ctx context.Context, battleID string) (*hub.Subscriber, model.BattleSnapshot, error) {
	snap, _, err := s.GetSnapshot(ctx, battleID)
	if err != nil {
		return nil, model.BattleSnapshot{}, err
	}
	return s.hub.Subscribe(battleID), snap, nil
}

// Unsubscribe removes a push-mode viewer.
func (s *Service) Unsubscribe(sub *hub.Subscriber) {
	s.hub.Unsubscribe(sub)
}

// Redeem opens a container for the player.
func (s *Service) Redeem(ctx context.Context, playerID, containerID string) (redeem.Result, error) {
	return s.redeemer.Redeem(ctx, playerID, containerID)
}

// Containers lists the purchasable containers.
func (s *Service) Containers() []model.Container {
	return s.containers.List()
}

// Balance returns the player's wallet balance.
func (s *Service) Balance(playerID string) int64 {
	return s.funds.Balance(playerID)
}

// Stats reports live operational counters for the stats endpoint.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	waiting, active, finished := s.registry.Counts()
	return map[string]interface{}{
		"queueLength":     s.queue.Len(ctx),
		"subscribers":     s.hub.TotalSubscribers(),
		"battlesWaiting":  waiting,
		"battlesActive":   active,
		"battlesFinished": finished,
	}
}

// battleClock sweeps for expired battles and finishes them.
func (s *Service) battleClock(ctx context.Context) {
	defer close(s.clockDone)
	ticker := time.NewTicker(s.clockTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			for _, battleID := range s.registry.Expired(s.now()) {
				s.finishBattle(ctx, battleID)
			}
		}
	}
}

// finishBattle closes one expired battle, picking the winner from the
// final standings.
func (s *Service) finishBattle(ctx context.Context, battleID string) {
	final, err := s.recompute(ctx, battleID)
	if err != nil {
		s.logger.Error(ctx, "final standings recompute failed",
			logger.String("battleID", battleID),
			logger.Error(err),
		)
		return
	}

	battle, err := s.registry.Finish(battleID, final.snapshot.TopParticipantID)
	if err != nil {
		s.logger.Error(ctx, "battle finish failed",
			logger.String("battleID", battleID),
			logger.Error(err),
		)
		return
	}

	// Recompute once more so cached state and pollers see the final
	// status immediately.
	s.cache.Invalidate(battleID)
	if _, _, err := s.refresh(ctx, battleID); err != nil {
		s.logger.Warn(ctx, "post-finish refresh failed",
			logger.String("battleID", battleID),
			logger.Error(err),
		)
	}

	s.logger.Info(ctx, "battle finished",
		logger.String("battleID", battleID),
		logger.String("winnerID", battle.WinnerID),
		logger.Int64("topScore", final.snapshot.TopScore),
	)
}

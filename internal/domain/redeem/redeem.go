// Package redeem runs a container opening end to end: price lookup,
// affordability check, outcome resolution, reward application and the
// durable record. Any failure before the reward is applied leaves the
// player's balance untouched and writes no record.
package redeem

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/pkg/logger"
	"github.com/pawlik/clickarena/pkg/metrics"
)

// defaultCompensation is paid out for a duplicate-owned cosmetic.
const defaultCompensation int64 = 50

// ContainerSource looks up priced containers.
type ContainerSource interface {
	Get(id string) (model.Container, error)
}

// Funds is the player balance collaborator.
type Funds interface {
	Debit(playerID string, amount int64) (int64, error)
	Credit(playerID string, amount int64) int64
}

// Ownership answers and mutates what a player holds.
type Ownership interface {
	OwnsCosmetic(playerID, cosmetic string) bool
	GrantCosmetic(playerID, cosmetic string)
	GrantProgress(playerID string, amount int64)
}

// Resolver picks one outcome from a container.
type Resolver interface {
	Resolve(c model.Container) (model.Outcome, error)
}

// Recorder persists the opening.
type Recorder interface {
	AppendRedemption(ctx context.Context, rec model.RedemptionRecord) error
}

// Result is what the player sees after an opening.
type Result struct {
	Success      bool              `json:"success"`
	OutcomeKind  model.OutcomeKind `json:"outcomeKind"`
	OutcomeValue string            `json:"outcomeValue"`
	IsRare       bool              `json:"isRare"`
	Message      string            `json:"message"`
	NewBalance   int64             `json:"newBalance"`
}

// Redeemer orchestrates container openings.
type Redeemer struct {
	containers ContainerSource
	funds      Funds
	ownership  Ownership
	resolver   Resolver
	recorder   Recorder

	compensation int64
	now          func() time.Time
	logger       logger.Logger
}

// Option applies a configuration option to the Redeemer.
type Option func(*Redeemer)

// WithCompensation sets the duplicate-cosmetic payout.
func WithCompensation(coins int64) Option {
	return func(r *Redeemer) {
		if coins >= 0 {
			r.compensation = coins
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Redeemer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Redeemer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New wires a Redeemer from its collaborators.
func New(containers ContainerSource, funds Funds, ownership Ownership, resolver Resolver, recorder Recorder, opts ...Option) *Redeemer {
	r := &Redeemer{
		containers:   containers,
		funds:        funds,
		ownership:    ownership,
		resolver:     resolver,
		recorder:     recorder,
		compensation: defaultCompensation,
		now:          time.Now,
		logger:       logger.Get().Named("redeem"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Redeem opens one container for the player.
func (r *Redeemer) Redeem(ctx context.Context, playerID, containerID string) (Result, error) {
	container, err := r.containers.Get(containerID)
	if err != nil {
		metrics.RecordRedemptionFailure("container")
		return Result{}, fmt.Errorf("price container %q: %w", containerID, err)
	}

	balance, err := r.funds.Debit(playerID, container.Price)
	if err != nil {
		metrics.RecordRedemptionFailure("funds")
		return Result{}, fmt.Errorf("debit %d for container %q: %w", container.Price, containerID, err)
	}

	outcome, err := r.resolver.Resolve(container)
	if err != nil {
		// Resolution cannot partially apply; refund the debit in full.
		balance = r.funds.Credit(playerID, container.Price)
		metrics.RecordRedemptionFailure("resolve")
		return Result{}, fmt.Errorf("resolve container %q: %w", containerID, err)
	}

	result := r.apply(playerID, outcome, balance)

	record := model.RedemptionRecord{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		ContainerID: container.ID,
		Kind:        outcome.Kind,
		Value:       outcome.Value,
		IsRare:      outcome.IsRare,
		OpenedAt:    r.now(),
	}
	if err := r.recorder.AppendRedemption(ctx, record); err != nil {
		// The reward is already applied; losing the record must not
		// claw it back.
		r.logger.Error(ctx, "redemption record append failed",
			logger.String("playerID", playerID),
			logger.String("containerID", container.ID),
			logger.Error(err),
		)
	}

	metrics.RecordRedemption(string(outcome.Kind))
	return result, nil
}

// apply grants the rolled outcome and builds the player-facing result.
// The returned result reflects what was actually applied, which for a
// duplicate cosmetic is the compensation, not the roll.
func (r *Redeemer) apply(playerID string, outcome model.Outcome, balance int64) Result {
	result := Result{
		Success:      true,
		OutcomeKind:  outcome.Kind,
		OutcomeValue: outcome.Value,
		IsRare:       outcome.IsRare,
		NewBalance:   balance,
	}

	switch outcome.Kind {
	case model.OutcomeCurrency:
		amount := parseAmount(outcome.Value)
		result.NewBalance = r.funds.Credit(playerID, amount)
		result.Message = fmt.Sprintf("You won %d coins!", amount)

	case model.OutcomeProgress:
		amount := parseAmount(outcome.Value)
		r.ownership.GrantProgress(playerID, amount)
		result.Message = fmt.Sprintf("You won %d bonus clicks!", amount)

	case model.OutcomeCosmetic:
		if r.ownership.OwnsCosmetic(playerID, outcome.Value) {
			result.OutcomeKind = model.OutcomeCurrency
			result.OutcomeValue = strconv.FormatInt(r.compensation, 10)
			result.NewBalance = r.funds.Credit(playerID, r.compensation)
			result.Message = fmt.Sprintf("Duplicate %s converted to %d coins", outcome.Value, r.compensation)
		} else {
			r.ownership.GrantCosmetic(playerID, outcome.Value)
			result.Message = fmt.Sprintf("You won %s!", outcome.Value)
		}
	}
	return result
}

// parseAmount reads a numeric outcome value; malformed values grant
// nothing rather than failing an already-debited opening.
func parseAmount(value string) int64 {
	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil || amount < 0 {
		return 0
	}
	return amount
}

// Package loot resolves weighted container outcomes.
//
// Resolution walks outcomes sorted by weight descending, accumulating
// weight until the running sum reaches a uniform draw in [0, 100).
// Weights are relative and need not sum to 100; if the walk exhausts
// the list, the highest-weight outcome is returned, so a container
// with at least one outcome always resolves to exactly one outcome.
package loot

import (
	"math/rand"
	"sort"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// drawRange is the upper bound of the uniform draw.
const drawRange = 100.0

// Resolver picks one outcome from a container.
// Resolve is side-effect-free; the caller applies the reward and
// writes the redemption record.
type Resolver struct {
	draw func() float64
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithDraw injects the draw source. The function must return values
// in [0, 100). Used for deterministic tests.
func WithDraw(draw func() float64) Option {
	return func(r *Resolver) {
		if draw != nil {
			r.draw = draw
		}
	}
}

// NewResolver creates a resolver. The default draw uses the shared
// math/rand source, which is safe for concurrent use.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		draw: func() float64 { return rand.Float64() * drawRange }, //nolint:gosec // game odds, not crypto
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks exactly one outcome from the container.
// The only error case is a container with no outcomes.
func (r *Resolver) Resolve(c model.Container) (model.Outcome, error) {
	if len(c.Outcomes) == 0 {
		return model.Outcome{}, ErrEmptyContainer
	}

	// Stable sort by weight descending; ties keep their configured order.
	// Probabilistically neutral, but the cumulative walk exits fastest
	// on the common outcomes.
	sorted := make([]model.Outcome, len(c.Outcomes))
	copy(sorted, c.Outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	roll := r.draw()
	cumulative := 0.0
	for _, outcome := range sorted {
		cumulative += outcome.Weight
		if cumulative >= roll {
			return outcome, nil
		}
	}

	// Weights summed to under the draw range: guaranteed fallback to the
	// highest-weight outcome. Resolution never returns "nothing".
	return sorted[0], nil
}

// ValidateWeights enforces the container-authoring rule: no negative
// weights, and weights must sum to at least the full draw range so no
// part of the distribution silently degrades to "impossible".
func ValidateWeights(c model.Container) error {
	sum := 0.0
	for _, outcome := range c.Outcomes {
		if outcome.Weight < 0 {
			return ErrNegativeWeight
		}
		sum += outcome.Weight
	}
	if sum < drawRange {
		return ErrWeightCoverage
	}
	return nil
}

package model

import "time"

// OutcomeKind classifies what a container outcome grants.
type OutcomeKind string

const (
	OutcomeCurrency OutcomeKind = "currency"
	OutcomeProgress OutcomeKind = "progress"
	OutcomeCosmetic OutcomeKind = "cosmetic"
)

// Outcome is one weighted reward of a container. Weights are relative
// and not required to sum to 100.
type Outcome struct {
	Kind OutcomeKind
	// Value is the cosmetic name or the numeric amount as configured.
	Value  string
	Weight float64
	IsRare bool
}

// Container is a purchasable loot box: a priced, ordered list of
// weighted outcomes.
type Container struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Active      bool
	Outcomes    []Outcome
}

// RedemptionRecord is the immutable fact of one container opening.
// It always reflects the outcome actually rolled, even when the
// applied effect was substituted (e.g. duplicate cosmetic compensation).
type RedemptionRecord struct {
	ID          string
	PlayerID    string
	ContainerID string
	Kind        OutcomeKind
	Value       string
	IsRare      bool
	OpenedAt    time.Time
}

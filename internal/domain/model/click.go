package model

import "time"

// ClickEvent is an immutable click fact. Append-only; never updated or
// deleted. The sum of a participant's ClickEvents must equal that
// participant's cumulative counter after reconciliation.
type ClickEvent struct {
	EventID       string
	BattleID      string
	ParticipantID string
	// Delta is the click increment, already coerced to >= 1 on ingestion.
	Delta      int64
	ClientTS   time.Time
	SessionTag string
}

// Delta is a state-change notification fanned out to battle subscribers.
type Delta struct {
	Type          string    `json:"type"`
	ParticipantID string    `json:"participantId"`
	ClickDelta    int64     `json:"clickDelta"`
	ClientTS      time.Time `json:"clientTimestamp"`
}

// DeltaClickUpdate is the type tag of a click fan-out message.
const DeltaClickUpdate = "click_update"

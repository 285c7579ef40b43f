// Package model contains domain models passed between layers.
package model

import "time"

// BattleStatus is the lifecycle state of a battle.
// Transitions are server-driven only: waiting -> active -> finished.
type BattleStatus string

const (
	StatusWaiting  BattleStatus = "waiting"
	StatusActive   BattleStatus = "active"
	StatusFinished BattleStatus = "finished"
)

// Battle is a time-boxed click contest.
type Battle struct {
	ID         string
	Status     BattleStatus
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	// Duration is the fixed battle length once active.
	Duration time.Duration
	// WinnerID references the winning participant, set when finished.
	WinnerID string
}

// TimeLeft reports the remaining seconds of an active battle at now.
func (b *Battle) TimeLeft(now time.Time) int {
	if b.Status != StatusActive || b.StartedAt.IsZero() {
		return 0
	}
	left := b.Duration - now.Sub(b.StartedAt)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// Expired reports whether an active battle has run out of time at now.
func (b *Battle) Expired(now time.Time) bool {
	return b.Status == StatusActive && !b.StartedAt.IsZero() &&
		now.Sub(b.StartedAt) >= b.Duration
}

// Participant is one player's standing inside a single battle.
// Created lazily on first click or on explicit join.
type Participant struct {
	ID       string
	BattleID string
	PlayerID string
	Clicks   int64
	Score    int64
	IsReady  bool
	JoinedAt time.Time
}

// SnapshotEntry is one ranked row of a battle snapshot.
type SnapshotEntry struct {
	ParticipantID string `json:"participantId"`
	PlayerID      string `json:"playerId"`
	Clicks        int64  `json:"clicks"`
	Score         int64  `json:"score"`
	IsReady       bool   `json:"isReady"`
}

// BattleSnapshot is a derived, cached projection of a battle.
// Never the source of truth; always reconstructable from the battle,
// its participants and the click event log.
type BattleSnapshot struct {
	BattleID         string          `json:"battleId"`
	Status           BattleStatus    `json:"status"`
	Participants     []SnapshotEntry `json:"participants"`
	TotalClicks      int64           `json:"totalClicks"`
	TopScore         int64           `json:"topScore"`
	TopParticipantID string          `json:"topParticipantId"`
	TimeLeftSeconds  int             `json:"timeLeftSeconds"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

package registry

import "errors"

var (
	// ErrBattleNotFound is returned for an unknown battle id.
	ErrBattleNotFound = errors.New("battle not found")

	// ErrParticipantNotFound is returned for an unknown participant id.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrBattleFinished is returned when an operation needs a battle
	// that is still running.
	ErrBattleFinished = errors.New("battle already finished")

	// ErrBattleFull is returned when a battle already has both fighters.
	ErrBattleFull = errors.New("battle is full")
)

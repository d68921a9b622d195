package services

import (
	"errors"
	"fmt"
)

var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrSlotNotFound   = errors.New("slot not found")

	// ErrSlotUnavailable means another member claimed the slot first. Callers should
	// refresh the available slots and let the member pick again.
	ErrSlotUnavailable = errors.New("slot already taken")

	ErrAlreadyClaimed     = errors.New("member already claimed a slot")
	ErrRaffleClosed       = errors.New("raffle is not open")
	ErrRaffleConcluded    = errors.New("raffle already concluded")
	ErrAllocationNotReady = errors.New("members still pending")
	ErrNotConcluded       = errors.New("raffle has no results yet")

	// ErrIntegrityMismatch means the claimed slots and the drawable prizes differ in number
	ErrIntegrityMismatch = errors.New("claimed slots do not match drawable prizes")

	ErrResetIncomplete    = errors.New("reset incomplete")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ResetStep names one of the independent writes of a reset
type ResetStep string

const (
	ResetStepSelection ResetStep = "selection"
	ResetStepTeam      ResetStep = "team"
	ResetStepResults   ResetStep = "results"
)

// ResetError reports the step at which a reset stopped. Steps before it were applied,
// steps after it were not. Running the reset again is safe.
type ResetError struct {
	Team string
	Step ResetStep
	Err  error
}

func (e *ResetError) Error() string {
	return fmt.Sprintf("reset of %s stopped at %s: %v", e.Team, e.Step, e.Err)
}

func (e *ResetError) Unwrap() []error {
	return []error{ErrResetIncomplete, e.Err}
}

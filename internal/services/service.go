package services

import (
	"context"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
)

// ReservationService defines the member-facing slot operations
type ReservationService interface {
	// Claim binds the slot to the member identified by code
	Claim(ctx context.Context, team, slotLabel, memberCode string) (*models.Selection, error)

	// Available lists the unclaimed slots of a team
	Available(ctx context.Context, team string) ([]models.Option, error)

	// LookupMember resolves a member code to what that member sees
	LookupMember(ctx context.Context, team, memberCode string) (*models.MemberView, error)
}

// PresenceService defines the presence state machine
type PresenceService interface {
	// ToggleStatus flips the member between present and absent
	ToggleStatus(ctx context.Context, team, memberCode string) (*models.Member, error)
}

// BoardService assembles the facilitator read model
type BoardService interface {
	// Load builds the board from the current records
	Load(ctx context.Context, team string) (*models.Board, error)

	// Watch calls onBoard with a rebuilt board whenever the roster or the slot pool is
	// modified. onStop is called at most once if the feed ends before Unsubscribe.
	Watch(ctx context.Context, team string, onBoard func(*models.Board), onStop func(error)) (repositories.Unsubscribe, error)
}

// AllocationService defines the prize draw
type AllocationService interface {
	// Allocate draws prizes for a team whose members have all claimed or been marked absent
	Allocate(ctx context.Context, team string) (*models.Results, error)

	// Results returns the persisted allocation of a team
	Results(ctx context.Context, team string) (*models.Results, error)
}

// LifecycleService defines the facilitator transitions around a raffle cycle
type LifecycleService interface {
	// Provision writes the seeded records of a team
	Provision(ctx context.Context, team string) error

	// Open starts accepting claims
	Open(ctx context.Context, team string) error

	// Reset restores a team to its provisioned state
	Reset(ctx context.Context, team string) error
}

// AuthService defines facilitator authentication
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
}

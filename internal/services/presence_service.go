package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PresenceServiceImpl implements PresenceService
var _ PresenceService = (*PresenceServiceImpl)(nil)

// PresenceServiceImpl flips member presence through transactions on the roster
type PresenceServiceImpl struct {
	teamRepo   repositories.TeamRepository
	resultRepo repositories.ResultRepository
}

// NewPresenceService creates a new PresenceServiceImpl
func NewPresenceService(repos repositories.Repositories) *PresenceServiceImpl {
	return &PresenceServiceImpl{
		teamRepo:   repos.Teams,
		resultRepo: repos.Results,
	}
}

// ToggleStatus flips one member between present and absent, leaving the rest of the roster
// as committed by others. Not allowed once the raffle has concluded.
func (s *PresenceServiceImpl) ToggleStatus(ctx context.Context, team, memberCode string) (*models.Member, error) {
	// Checked outside the roster transaction: records are atomic per key only, so a toggle
	// racing Allocate may still land after results are written. Results never read the
	// roster again once stored, so such a toggle only changes the displayed status.
	concluded, err := resultsExist(ctx, s.resultRepo, team)
	if err != nil {
		return nil, err
	}
	if concluded {
		return nil, ErrRaffleConcluded
	}

	var flipped models.Member
	_, err = s.teamRepo.Transact(ctx, team, func(roster *models.Team) error {
		i := roster.FindMember(memberCode)
		if i < 0 {
			return ErrMemberNotFound
		}
		roster.Members[i].Status = roster.Members[i].Status.Flip()
		flipped = roster.Members[i]
		return nil
	})
	if err != nil {
		switch {
		case repositories.IsNotFound(err):
			return nil, ErrTeamNotFound
		case errors.Is(err, ErrMemberNotFound):
			return nil, err
		default:
			slog.Error("Presence transaction failed", "team", team, "member", memberCode, "error", err)
			return nil, fmt.Errorf("failed to update member status: %w", err)
		}
	}

	slog.Info("Member status changed", "team", team, "member", memberCode, "status", flipped.Status)
	return &flipped, nil
}

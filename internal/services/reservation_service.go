package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure ReservationServiceImpl implements ReservationService
var _ ReservationService = (*ReservationServiceImpl)(nil)

// ReservationServiceImpl claims slots through single-record transactions on the slot pool
type ReservationServiceImpl struct {
	teamRepo      repositories.TeamRepository
	selectionRepo repositories.SelectionRepository
	resultRepo    repositories.ResultRepository
}

// NewReservationService creates a new ReservationServiceImpl
func NewReservationService(repos repositories.Repositories) *ReservationServiceImpl {
	return &ReservationServiceImpl{
		teamRepo:      repos.Teams,
		selectionRepo: repos.Selections,
		resultRepo:    repos.Results,
	}
}

// Claim binds slotLabel to the member identified by memberCode.
// ErrSlotUnavailable is returned when another member won the slot first.
func (s *ReservationServiceImpl) Claim(ctx context.Context, team, slotLabel, memberCode string) (*models.Selection, error) {
	// 1. Gate on the roster: raffle open and claimant known
	roster, err := readTeam(ctx, s.teamRepo, team)
	if err != nil {
		return nil, err
	}
	if !roster.IsOpen {
		return nil, ErrRaffleClosed
	}
	name := roster.MemberName(memberCode)
	if name == "" {
		return nil, ErrMemberNotFound
	}

	concluded, err := resultsExist(ctx, s.resultRepo, team)
	if err != nil {
		return nil, err
	}
	if concluded {
		return nil, ErrRaffleConcluded
	}

	// 2. Claim inside the pool transaction; every retry re-runs the checks on fresh state
	sel, err := s.selectionRepo.Transact(ctx, team, func(sel *models.Selection) error {
		i := sel.FindOption(slotLabel)
		if i < 0 {
			return ErrSlotNotFound
		}
		if _, ok := sel.ClaimedBy(name); ok {
			return ErrAlreadyClaimed
		}
		if sel.Options[i].IsClaimed() {
			return ErrSlotUnavailable
		}
		sel.Options[i].Value = name
		return nil
	})
	if err != nil {
		switch {
		case repositories.IsNotFound(err):
			// No pool yet reads as an empty pool
			return nil, ErrSlotNotFound
		case errors.Is(err, ErrSlotUnavailable):
			slog.Info("Slot already taken", "team", team, "slot", slotLabel, "member", memberCode)
			return nil, err
		case errors.Is(err, ErrSlotNotFound), errors.Is(err, ErrAlreadyClaimed):
			return nil, err
		default:
			slog.Error("Claim transaction failed", "team", team, "slot", slotLabel, "error", err)
			return nil, fmt.Errorf("failed to claim slot: %w", err)
		}
	}

	slog.Info("Slot claimed", "team", team, "slot", slotLabel, "member", memberCode)
	return sel, nil
}

// Available lists the unclaimed slots in pool order
func (s *ReservationServiceImpl) Available(ctx context.Context, team string) ([]models.Option, error) {
	sel, err := readSelection(ctx, s.selectionRepo, team)
	if err != nil {
		return nil, err
	}
	return sel.Available(), nil
}

// LookupMember resolves a member code to the member's name, the open state and the slots
// the member can still pick from
func (s *ReservationServiceImpl) LookupMember(ctx context.Context, team, memberCode string) (*models.MemberView, error) {
	roster, err := readTeam(ctx, s.teamRepo, team)
	if err != nil {
		return nil, err
	}
	name := roster.MemberName(memberCode)
	if name == "" {
		return nil, ErrMemberNotFound
	}

	sel, err := readSelection(ctx, s.selectionRepo, team)
	if err != nil {
		return nil, err
	}

	view := &models.MemberView{
		TeamName:  team,
		Name:      name,
		IsOpen:    roster.IsOpen,
		Available: sel.Available(),
	}
	if chosen, ok := sel.ClaimedBy(name); ok {
		view.Chosen = chosen.Label
	}
	return view, nil
}

// readTeam loads a roster, mapping a missing record to ErrTeamNotFound
func readTeam(ctx context.Context, repo repositories.TeamRepository, team string) (*models.Team, error) {
	roster, err := repo.Read(ctx, team)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to read team: %w", err)
	}
	return roster, nil
}

// readSelection loads a slot pool; a missing record reads as an empty pool
func readSelection(ctx context.Context, repo repositories.SelectionRepository, team string) (*models.Selection, error) {
	sel, err := repo.Read(ctx, team)
	if err != nil {
		if repositories.IsNotFound(err) {
			return &models.Selection{TeamName: team, Options: []models.Option{}}, nil
		}
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	return sel, nil
}

// readResults loads the allocation of a team; nil means the raffle has not concluded
func readResults(ctx context.Context, repo repositories.ResultRepository, team string) (*models.Results, error) {
	res, err := repo.Read(ctx, team)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return res, nil
}

func resultsExist(ctx context.Context, repo repositories.ResultRepository, team string) (bool, error) {
	res, err := readResults(ctx, repo, team)
	return res != nil, err
}

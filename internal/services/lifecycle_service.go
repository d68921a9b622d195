package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure LifecycleServiceImpl implements LifecycleService
var _ LifecycleService = (*LifecycleServiceImpl)(nil)

// LifecycleServiceImpl provisions, opens and resets teams from the seed catalog
type LifecycleServiceImpl struct {
	repos   repositories.Repositories
	catalog *seed.Catalog
}

// NewLifecycleService creates a new LifecycleServiceImpl
func NewLifecycleService(repos repositories.Repositories, catalog *seed.Catalog) *LifecycleServiceImpl {
	return &LifecycleServiceImpl{repos: repos, catalog: catalog}
}

// Provision writes the prize pool of a team and then restores its other records
func (s *LifecycleServiceImpl) Provision(ctx context.Context, team string) error {
	ts, err := s.teamSeed(team)
	if err != nil {
		return err
	}
	if err := s.repos.Prizes.Write(ctx, team, ts.PrizePool()); err != nil {
		return fmt.Errorf("failed to write prizes: %w", err)
	}
	if err := s.restore(ctx, ts); err != nil {
		return err
	}
	slog.Info("Team provisioned", "team", team, "members", len(ts.Members), "options", len(ts.Options))
	return nil
}

// Open starts accepting claims. The flag only ever moves to true here, so a plain write
// of the current roster is enough.
func (s *LifecycleServiceImpl) Open(ctx context.Context, team string) error {
	roster, err := readTeam(ctx, s.repos.Teams, team)
	if err != nil {
		return err
	}
	if roster.IsOpen {
		return nil
	}
	roster.IsOpen = true
	if err := s.repos.Teams.Write(ctx, team, roster); err != nil {
		return fmt.Errorf("failed to open raffle: %w", err)
	}
	slog.Info("Raffle opened", "team", team)
	return nil
}

// Reset restores the slot pool and the roster of a team from the catalog and deletes its
// results. The three writes are independent; a failure returns a *ResetError naming the
// step that did not complete.
func (s *LifecycleServiceImpl) Reset(ctx context.Context, team string) error {
	ts, err := s.teamSeed(team)
	if err != nil {
		return err
	}
	if err := s.restore(ctx, ts); err != nil {
		slog.Error("Reset incomplete", "team", team, "error", err)
		return err
	}
	slog.Info("Team reset", "team", team)
	return nil
}

func (s *LifecycleServiceImpl) restore(ctx context.Context, ts seed.TeamSeed) error {
	team := ts.TeamName
	if err := s.repos.Selections.Write(ctx, team, ts.InitialSelection()); err != nil {
		return &ResetError{Team: team, Step: ResetStepSelection, Err: err}
	}
	if err := s.repos.Teams.Write(ctx, team, ts.InitialTeam()); err != nil {
		return &ResetError{Team: team, Step: ResetStepTeam, Err: err}
	}
	if err := s.repos.Results.Delete(ctx, team); err != nil {
		return &ResetError{Team: team, Step: ResetStepResults, Err: err}
	}
	return nil
}

func (s *LifecycleServiceImpl) teamSeed(team string) (seed.TeamSeed, error) {
	ts, err := s.catalog.Team(team)
	if err != nil {
		if errors.Is(err, seed.ErrUnknownTeam) {
			return seed.TeamSeed{}, ErrTeamNotFound
		}
		return seed.TeamSeed{}, err
	}
	return ts, nil
}

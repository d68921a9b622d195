package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// DefaultLowestPrize is the guaranteed prize of absent members
const DefaultLowestPrize int64 = 5000

// Compile-time check to ensure AllocationServiceImpl implements AllocationService
var _ AllocationService = (*AllocationServiceImpl)(nil)

// ShuffleFunc permutes n elements in place through swap, like rand.Shuffle
type ShuffleFunc func(n int, swap func(i, j int))

// AllocationOption configures an AllocationServiceImpl
type AllocationOption func(*AllocationServiceImpl)

// WithShuffle replaces the default uniform shuffle
func WithShuffle(shuffle ShuffleFunc) AllocationOption {
	return func(s *AllocationServiceImpl) {
		s.shuffle = shuffle
	}
}

// AllocationServiceImpl draws prizes and persists them as the team's results
type AllocationServiceImpl struct {
	teamRepo      repositories.TeamRepository
	selectionRepo repositories.SelectionRepository
	prizeRepo     repositories.PrizeRepository
	resultRepo    repositories.ResultRepository
	lowestPrize   int64
	shuffle       ShuffleFunc
}

// NewAllocationService creates a new AllocationServiceImpl. A non-positive lowestPrize
// falls back to DefaultLowestPrize.
func NewAllocationService(repos repositories.Repositories, lowestPrize int64, opts ...AllocationOption) *AllocationServiceImpl {
	if lowestPrize <= 0 {
		lowestPrize = DefaultLowestPrize
	}
	s := &AllocationServiceImpl{
		teamRepo:      repos.Teams,
		selectionRepo: repos.Selections,
		prizeRepo:     repos.Prizes,
		resultRepo:    repos.Results,
		lowestPrize:   lowestPrize,
		shuffle:       rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate draws the prizes of a team and stores them. The results record is created,
// never overwritten, so a second allocation fails with ErrRaffleConcluded until Reset.
func (s *AllocationServiceImpl) Allocate(ctx context.Context, team string) (*models.Results, error) {
	// 1. Refuse a second draw
	concluded, err := resultsExist(ctx, s.resultRepo, team)
	if err != nil {
		return nil, err
	}
	if concluded {
		return nil, ErrRaffleConcluded
	}

	// 2. Gate on eligibility
	roster, err := readTeam(ctx, s.teamRepo, team)
	if err != nil {
		return nil, err
	}
	sel, err := readSelection(ctx, s.selectionRepo, team)
	if err != nil {
		return nil, err
	}
	if !AllocationReady(roster, sel) {
		return nil, ErrAllocationNotReady
	}

	// 3. Prize pool is re-read on every attempt
	pool, err := s.prizeRepo.Read(ctx, team)
	if err != nil {
		if repositories.IsNotFound(err) {
			pool = &models.Prizes{TeamName: team}
		} else {
			return nil, fmt.Errorf("failed to read prizes: %w", err)
		}
	}

	// 4. Draw
	results, err := DrawPrizes(pool.Prizes, sel.Claimed(), roster.AbsentMembers(), s.lowestPrize, s.shuffle)
	if err != nil {
		slog.Error("Allocation rejected", "team", team, "error", err)
		return nil, err
	}

	// 5. Persist once
	if err := s.resultRepo.Create(ctx, team, results); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			slog.Warn("Concurrent allocation lost", "team", team)
			return nil, ErrRaffleConcluded
		}
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	slog.Info("Prizes allocated", "team", team, "entries", len(results.Results), "absent", len(roster.AbsentMembers()))
	return results, nil
}

// Results returns the stored allocation of a team, or ErrNotConcluded
func (s *AllocationServiceImpl) Results(ctx context.Context, team string) (*models.Results, error) {
	res, err := readResults(ctx, s.resultRepo, team)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotConcluded
	}
	return res, nil
}

// DrawPrizes allocates prizes to claimed slots. The len(absent) lowest prizes are taken out
// of the draw, the rest are shuffled and paired with claimed in order, and every absent
// member gets lowestPrize with option "-". The claimed count must equal the number of
// drawable prizes.
func DrawPrizes(prizes []int64, claimed []models.Option, absent []models.Member, lowestPrize int64, shuffle ShuffleFunc) (*models.Results, error) {
	sorted := make([]int64, len(prizes))
	copy(sorted, prizes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(absent) > len(sorted) {
		return nil, fmt.Errorf("%w: %d absent members for %d prizes", ErrIntegrityMismatch, len(absent), len(sorted))
	}
	drawable := sorted[len(absent):]
	if len(drawable) != len(claimed) {
		return nil, fmt.Errorf("%w: %d claimed slots for %d prizes", ErrIntegrityMismatch, len(claimed), len(drawable))
	}

	shuffle(len(drawable), func(i, j int) {
		drawable[i], drawable[j] = drawable[j], drawable[i]
	})

	results := make([]models.RaffleResult, 0, len(claimed)+len(absent))
	for i, slot := range claimed {
		results = append(results, models.RaffleResult{Name: slot.Value, Option: slot.Label, Prize: drawable[i]})
	}
	for _, m := range absent {
		results = append(results, models.RaffleResult{Name: m.Name, Option: models.AbsentOption, Prize: lowestPrize})
	}
	return &models.Results{Results: results}, nil
}

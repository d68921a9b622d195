package services

import (
	"context"
	"sync"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure BoardServiceImpl implements BoardService
var _ BoardService = (*BoardServiceImpl)(nil)

// BoardServiceImpl rebuilds the facilitator board from the store on every request and
// on every change notification. It keeps no board state of its own.
type BoardServiceImpl struct {
	teamRepo      repositories.TeamRepository
	selectionRepo repositories.SelectionRepository
	resultRepo    repositories.ResultRepository
}

// NewBoardService creates a new BoardServiceImpl
func NewBoardService(repos repositories.Repositories) *BoardServiceImpl {
	return &BoardServiceImpl{
		teamRepo:      repos.Teams,
		selectionRepo: repos.Selections,
		resultRepo:    repos.Results,
	}
}

// Load reads the roster, the slot pool and the results concurrently and builds the board
func (s *BoardServiceImpl) Load(ctx context.Context, team string) (*models.Board, error) {
	var (
		roster  *models.Team
		sel     *models.Selection
		results *models.Results
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = readTeam(gctx, s.teamRepo, team)
		return err
	})
	g.Go(func() error {
		var err error
		sel, err = readSelection(gctx, s.selectionRepo, team)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = readResults(gctx, s.resultRepo, team)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildBoard(roster, sel, results), nil
}

// Watch subscribes to the roster and the slot pool of a team. Each modification triggers
// a fresh Load; boards are delivered one at a time. If the store ends either subscription,
// both are torn down and onStop receives the cause, once.
func (s *BoardServiceImpl) Watch(ctx context.Context, team string, onBoard func(*models.Board), onStop func(error)) (repositories.Unsubscribe, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	var mu sync.Mutex
	refresh := func() {
		mu.Lock()
		defer mu.Unlock()
		if watchCtx.Err() != nil {
			return
		}
		board, err := s.Load(watchCtx, team)
		if err != nil {
			slog.Warn("Failed to rebuild board", "team", team, "error", err)
			return
		}
		onBoard(board)
	}

	var once sync.Once
	stop := func(err error) {
		once.Do(func() {
			if watchCtx.Err() != nil {
				return
			}
			cancel()
			slog.Warn("Board feed stopped", "team", team, "error", err)
			if onStop != nil {
				onStop(err)
			}
		})
	}

	stopTeam, err := s.teamRepo.Subscribe(watchCtx, team, func(c repositories.Change[models.Team]) {
		switch c.Type {
		case repositories.ChangeModified:
			refresh()
		case repositories.ChangeStopped:
			stop(c.Err)
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	stopSelection, err := s.selectionRepo.Subscribe(watchCtx, team, func(c repositories.Change[models.Selection]) {
		switch c.Type {
		case repositories.ChangeModified:
			refresh()
		case repositories.ChangeStopped:
			stop(c.Err)
		}
	})
	if err != nil {
		stopTeam()
		cancel()
		return nil, err
	}

	return func() {
		cancel()
		stopTeam()
		stopSelection()
	}, nil
}

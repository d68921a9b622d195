package services

import (
	"context"
	"testing"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories/memory"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
teams:
  - teamname: orion
    members:
      - {code: "A1", name: "Ada"}
      - {code: "B2", name: "Bo"}
      - {code: "C3", name: "Cy"}
    options: ["1", "2", "3"]
    prizes: [300, 100, 200]
`

type fixture struct {
	repos       repositories.Repositories
	catalog     *seed.Catalog
	reservation *ReservationServiceImpl
	presence    *PresenceServiceImpl
	board       *BoardServiceImpl
	allocation  *AllocationServiceImpl
	lifecycle   *LifecycleServiceImpl
}

// identityShuffle leaves prizes in ascending order
func identityShuffle(int, func(i, j int)) {}

// newFixture provisions the orion team in a memory store. The raffle is not open yet.
func newFixture(t *testing.T, opts ...AllocationOption) *fixture {
	t.Helper()
	catalog, err := seed.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return newFixtureWith(t, memory.NewRepositories(0), catalog, opts...)
}

func newFixtureWith(t *testing.T, repos repositories.Repositories, catalog *seed.Catalog, opts ...AllocationOption) *fixture {
	t.Helper()
	f := &fixture{
		repos:       repos,
		catalog:     catalog,
		reservation: NewReservationService(repos),
		presence:    NewPresenceService(repos),
		board:       NewBoardService(repos),
		allocation:  NewAllocationService(repos, DefaultLowestPrize, opts...),
		lifecycle:   NewLifecycleService(repos, catalog),
	}
	require.NoError(t, f.lifecycle.Provision(context.Background(), "orion"))
	return f
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	require.NoError(t, f.lifecycle.Open(context.Background(), "orion"))
}

func (f *fixture) claim(t *testing.T, label, code string) {
	t.Helper()
	_, err := f.reservation.Claim(context.Background(), "orion", label, code)
	require.NoError(t, err)
}

func (f *fixture) toggle(t *testing.T, code string) {
	t.Helper()
	_, err := f.presence.ToggleStatus(context.Background(), "orion", code)
	require.NoError(t, err)
}

func (f *fixture) selection(t *testing.T) *models.Selection {
	t.Helper()
	sel, err := f.repos.Selections.Read(context.Background(), "orion")
	require.NoError(t, err)
	return sel
}

func (f *fixture) team(t *testing.T) *models.Team {
	t.Helper()
	team, err := f.repos.Teams.Read(context.Background(), "orion")
	require.NoError(t, err)
	return team
}

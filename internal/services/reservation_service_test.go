package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories/memory"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	sel, err := f.reservation.Claim(context.Background(), "orion", "2", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", sel.Options[1].Value)
	assert.Equal(t, sel, f.selection(t))

	available, err := f.reservation.Available(context.Background(), "orion")
	require.NoError(t, err)
	assert.Equal(t, []models.Option{{Label: "1"}, {Label: "3"}}, available)
}

func TestClaimErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		team    string
		label   string
		code    string
		wantErr error
	}{
		{
			name:    "raffle not open",
			setup:   func(t *testing.T, f *fixture) {},
			team:    "orion",
			label:   "1",
			code:    "A1",
			wantErr: ErrRaffleClosed,
		},
		{
			name:    "unknown team",
			setup:   func(t *testing.T, f *fixture) { f.open(t) },
			team:    "vega",
			label:   "1",
			code:    "A1",
			wantErr: ErrTeamNotFound,
		},
		{
			name:    "unknown member",
			setup:   func(t *testing.T, f *fixture) { f.open(t) },
			team:    "orion",
			label:   "1",
			code:    "Z9",
			wantErr: ErrMemberNotFound,
		},
		{
			name:    "unknown slot",
			setup:   func(t *testing.T, f *fixture) { f.open(t) },
			team:    "orion",
			label:   "42",
			code:    "A1",
			wantErr: ErrSlotNotFound,
		},
		{
			name: "slot taken",
			setup: func(t *testing.T, f *fixture) {
				f.open(t)
				f.claim(t, "1", "B2")
			},
			team:    "orion",
			label:   "1",
			code:    "A1",
			wantErr: ErrSlotUnavailable,
		},
		{
			name: "member already holds a slot",
			setup: func(t *testing.T, f *fixture) {
				f.open(t)
				f.claim(t, "1", "A1")
			},
			team:    "orion",
			label:   "2",
			code:    "A1",
			wantErr: ErrAlreadyClaimed,
		},
		{
			name: "raffle concluded",
			setup: func(t *testing.T, f *fixture) {
				f.open(t)
				f.claim(t, "1", "A1")
				f.claim(t, "2", "B2")
				f.toggle(t, "C3")
				_, err := f.allocation.Allocate(context.Background(), "orion")
				require.NoError(t, err)
			},
			team:    "orion",
			label:   "3",
			code:    "C3",
			wantErr: ErrRaffleConcluded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)
			before := f.selection(t)

			_, err := f.reservation.Claim(context.Background(), tt.team, tt.label, tt.code)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.selection(t), "a failed claim must not change the pool")
		})
	}
}

func TestClaimWithoutPoolIsSlotNotFound(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	require.NoError(t, f.repos.Selections.Delete(context.Background(), "orion"))

	_, err := f.reservation.Claim(context.Background(), "orion", "1", "A1")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	available, err := f.reservation.Available(context.Background(), "orion")
	require.NoError(t, err)
	assert.Empty(t, available)
}

// Two members race for the same slot: exactly one wins
func TestClaimRaceTwoClients(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(map[string]error)
	var mu sync.Mutex
	for _, code := range []string{"A1", "B2"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			<-start
			_, err := f.reservation.Claim(context.Background(), "orion", "1", code)
			mu.Lock()
			errs[code] = err
			mu.Unlock()
		}(code)
	}
	close(start)
	wg.Wait()

	var winner string
	losses := 0
	for code, err := range errs {
		if err == nil {
			winner = code
			continue
		}
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		losses++
	}
	require.NotEmpty(t, winner)
	assert.Equal(t, 1, losses)

	team := f.team(t)
	sel := f.selection(t)
	assert.Equal(t, team.MemberName(winner), sel.Options[0].Value)
	assert.Len(t, sel.Claimed(), 1)
}

// Many members race for the same slot and for each other's slots; every slot ends with
// at most one claimant and every member with at most one slot
func TestClaimRaceManyClients(t *testing.T) {
	const members = 30
	catalog := "teams:\n  - teamname: orion\n    members:\n"
	for i := 0; i < members; i++ {
		catalog += fmt.Sprintf("      - {code: \"M%d\", name: \"Member %d\"}\n", i, i)
	}
	catalog += "    options: ["
	for i := 0; i < members; i++ {
		if i > 0 {
			catalog += ", "
		}
		catalog += fmt.Sprintf("\"%d\"", i)
	}
	catalog += "]\n    prizes: ["
	for i := 0; i < members; i++ {
		if i > 0 {
			catalog += ", "
		}
		catalog += fmt.Sprintf("%d", (i+1)*100)
	}
	catalog += "]\n"

	c, err := seed.Parse([]byte(catalog))
	require.NoError(t, err)
	f := newFixtureWith(t, memory.NewRepositories(10000), c)
	f.open(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	start := make(chan struct{})
	for i := 0; i < members; i++ {
		for _, label := range []string{"0", fmt.Sprintf("%d", i)} {
			wg.Add(1)
			go func(code, label string) {
				defer wg.Done()
				<-start
				_, err := f.reservation.Claim(context.Background(), "orion", label, code)
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				assert.True(t, errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrAlreadyClaimed), "unexpected error %v", err)
			}(fmt.Sprintf("M%d", i), label)
		}
	}
	close(start)
	wg.Wait()

	sel := f.selection(t)
	claimants := map[string]int{}
	for _, o := range sel.Options {
		if o.IsClaimed() {
			claimants[o.Value]++
		}
	}
	for name, n := range claimants {
		assert.Equal(t, 1, n, "%s holds %d slots", name, n)
	}
	assert.Equal(t, successes, len(sel.Claimed()))
	assert.GreaterOrEqual(t, successes, members-1)
}

func TestLookupMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.reservation.LookupMember(ctx, "orion", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Bo", view.Name)
	assert.False(t, view.IsOpen)
	assert.Len(t, view.Available, 3)
	assert.Empty(t, view.Chosen)

	f.open(t)
	f.claim(t, "3", "B2")

	view, err = f.reservation.LookupMember(ctx, "orion", "B2")
	require.NoError(t, err)
	assert.True(t, view.IsOpen)
	assert.Equal(t, "3", view.Chosen)
	assert.Equal(t, []models.Option{{Label: "1"}, {Label: "2"}}, view.Available)

	_, err = f.reservation.LookupMember(ctx, "orion", "nope")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = f.reservation.LookupMember(ctx, "vega", "B2")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

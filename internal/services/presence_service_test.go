package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member, err := f.presence.ToggleStatus(ctx, "orion", "B2")
	require.NoError(t, err)
	assert.Equal(t, models.Member{Code: "B2", Name: "Bo", Status: models.MemberStatusAbsent}, *member)

	team := f.team(t)
	assert.Equal(t, models.MemberStatusPresent, team.Members[0].Status)
	assert.Equal(t, models.MemberStatusAbsent, team.Members[1].Status)
	assert.Equal(t, models.MemberStatusPresent, team.Members[2].Status)

	member, err = f.presence.ToggleStatus(ctx, "orion", "B2")
	require.NoError(t, err)
	assert.Equal(t, models.MemberStatusPresent, member.Status)
	assert.Empty(t, f.team(t).AbsentMembers())
}

func TestToggleStatusKeepsOpenFlag(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.toggle(t, "A1")
	assert.True(t, f.team(t).IsOpen)
}

func TestToggleStatusErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.presence.ToggleStatus(ctx, "orion", "Z9")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = f.presence.ToggleStatus(ctx, "vega", "A1")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	f.open(t)
	f.claim(t, "1", "A1")
	f.claim(t, "2", "B2")
	f.claim(t, "3", "C3")
	_, err = f.allocation.Allocate(ctx, "orion")
	require.NoError(t, err)

	_, err = f.presence.ToggleStatus(ctx, "orion", "A1")
	assert.ErrorIs(t, err, ErrRaffleConcluded)
	assert.Empty(t, f.team(t).AbsentMembers())
}

func TestToggleStatusConcurrentMembers(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, code := range []string{"A1", "B2", "C3"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			<-start
			_, err := f.presence.ToggleStatus(context.Background(), "orion", code)
			assert.NoError(t, err)
		}(code)
	}
	close(start)
	wg.Wait()

	assert.Len(t, f.team(t).AbsentMembers(), 3, "flips of different members must all land")
}

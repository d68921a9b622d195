// Package repotest holds behaviour checks shared by every record store.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises repos against the Collection contract. Keys are random so the checks can
// share a live database with other data.
func Run(t *testing.T, repos repositories.Repositories) {
	t.Run("ReadWrite", func(t *testing.T) { testReadWrite(t, repos.Selections) })
	t.Run("Create", func(t *testing.T) { testCreate(t, repos.Results) })
	t.Run("Transact", func(t *testing.T) { testTransact(t, repos.Selections) })
	t.Run("TransactAfterRecreate", func(t *testing.T) { testTransactAfterRecreate(t, repos.Selections) })
	t.Run("ConcurrentTransact", func(t *testing.T) { testConcurrentTransact(t, repos.Teams) })
	t.Run("Subscribe", func(t *testing.T) { testSubscribe(t, repos.Teams) })
}

func newKey() string {
	return "test-" + uuid.NewString()
}

func testReadWrite(t *testing.T, c repositories.SelectionRepository) {
	ctx := context.Background()
	key := newKey()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	_, err := c.Read(ctx, key)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	sel := &models.Selection{TeamName: key, Options: []models.Option{{Label: "1"}, {Label: "2", Value: "Ada"}}}
	require.NoError(t, c.Write(ctx, key, sel))
	got, err := c.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sel, got)

	sel.Options[0].Value = "Bo"
	require.NoError(t, c.Write(ctx, key, sel))
	got, err = c.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Bo", got.Options[0].Value)

	require.NoError(t, c.Delete(ctx, key))
	require.NoError(t, c.Delete(ctx, key), "deleting a missing record is fine")
	_, err = c.Read(ctx, key)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testCreate(t *testing.T, c repositories.ResultRepository) {
	ctx := context.Background()
	key := newKey()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	first := &models.Results{Results: []models.RaffleResult{{Name: "Ada", Option: "1", Prize: 100}}}
	require.NoError(t, c.Create(ctx, key, first))
	err := c.Create(ctx, key, &models.Results{})
	require.ErrorIs(t, err, repositories.ErrAlreadyExists)

	got, err := c.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first, got, "a refused create leaves the record alone")
}

func testTransact(t *testing.T, c repositories.SelectionRepository) {
	ctx := context.Background()
	key := newKey()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	_, err := c.Transact(ctx, key, func(*models.Selection) error {
		t.Fatal("fn called for a missing record")
		return nil
	})
	require.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, c.Write(ctx, key, &models.Selection{TeamName: key, Options: []models.Option{{Label: "1"}}}))

	boom := errors.New("boom")
	_, err = c.Transact(ctx, key, func(sel *models.Selection) error {
		sel.Options[0].Value = "Ada"
		return boom
	})
	require.ErrorIs(t, err, boom)
	got, err := c.Read(ctx, key)
	require.NoError(t, err)
	assert.False(t, got.Options[0].IsClaimed(), "an aborted transaction commits nothing")

	committed, err := c.Transact(ctx, key, func(sel *models.Selection) error {
		sel.Options[0].Value = "Ada"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", committed.Options[0].Value)
	got, err = c.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Options[0].Value)
}

// A record deleted and written again while a transaction is in flight must not look
// unchanged to it, even though the new record has had as few writes as the old one.
func testTransactAfterRecreate(t *testing.T, c repositories.SelectionRepository) {
	ctx := context.Background()
	key := newKey()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	require.NoError(t, c.Write(ctx, key, &models.Selection{TeamName: key, Options: []models.Option{{Label: "1"}}}))

	calls := 0
	committed, err := c.Transact(ctx, key, func(sel *models.Selection) error {
		calls++
		if calls == 1 {
			require.NoError(t, c.Delete(ctx, key))
			require.NoError(t, c.Write(ctx, key, &models.Selection{TeamName: key, Options: []models.Option{{Label: "9"}}}))
		}
		sel.Options[0].Value = "Ada"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "the stale attempt must be retried")
	assert.Equal(t, "9", committed.Options[0].Label)

	got, err := c.Read(ctx, key)
	require.NoError(t, err)
	require.Len(t, got.Options, 1)
	assert.Equal(t, "9", got.Options[0].Label, "the recreated record is not overwritten by the stale copy")
	assert.Equal(t, "Ada", got.Options[0].Value)
}

func testConcurrentTransact(t *testing.T, c repositories.TeamRepository) {
	ctx := context.Background()
	key := newKey()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	const members = 8
	team := &models.Team{TeamName: key}
	for i := 0; i < members; i++ {
		team.Members = append(team.Members, models.Member{Code: uuid.NewString(), Name: uuid.NewString(), Status: models.MemberStatusPresent})
	}
	require.NoError(t, c.Write(ctx, key, team))

	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Transact(ctx, key, func(roster *models.Team) error {
				roster.Members[i].Status = models.MemberStatusAbsent
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := c.Read(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got.AbsentMembers(), members, "no update may be lost")
}

func testSubscribe(t *testing.T, c repositories.TeamRepository) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	key := newKey()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	changes := make(chan repositories.Change[models.Team], 16)
	unsubscribe, err := c.Subscribe(ctx, key, func(ch repositories.Change[models.Team]) {
		changes <- ch
	})
	require.NoError(t, err)
	defer unsubscribe()

	next := func() repositories.Change[models.Team] {
		t.Helper()
		select {
		case ch := <-changes:
			return ch
		case <-time.After(5 * time.Second):
			t.Fatal("no change delivered")
			return repositories.Change[models.Team]{}
		}
	}

	require.NoError(t, c.Create(ctx, key, &models.Team{TeamName: key}))
	ch := next()
	assert.Equal(t, repositories.ChangeCreated, ch.Type)
	assert.Equal(t, key, ch.Key)

	_, err = c.Transact(ctx, key, func(team *models.Team) error {
		team.IsOpen = true
		return nil
	})
	require.NoError(t, err)
	ch = next()
	assert.Equal(t, repositories.ChangeModified, ch.Type)
	require.NotNil(t, ch.Doc)
	assert.True(t, ch.Doc.IsOpen)

	require.NoError(t, c.Delete(ctx, key))
	ch = next()
	assert.Equal(t, repositories.ChangeDeleted, ch.Type)
	assert.Nil(t, ch.Doc)
}

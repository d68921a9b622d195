package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lostFeedBoards serves a fixed board and reports the feed as lost as soon as it is watched
type lostFeedBoards struct {
	unsubscribed chan struct{}
}

func (b *lostFeedBoards) Load(_ context.Context, team string) (*models.Board, error) {
	return &models.Board{TeamName: team}, nil
}

func (b *lostFeedBoards) Watch(_ context.Context, _ string, _ func(*models.Board), onStop func(error)) (repositories.Unsubscribe, error) {
	onStop(repositories.ErrSubscriberLagged)
	return func() { close(b.unsubscribed) }, nil
}

func TestWatchClosesWhenFeedIsLost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	boards := &lostFeedBoards{unsubscribed: make(chan struct{})}
	router := gin.New()
	router.GET("/teams/:team/watch", NewWatchHandler(boards, nil).Watch)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/teams/orion/watch"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg BoardMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg), "the current board is still sent first")
	assert.Equal(t, "orion", msg.Board.TeamName)

	err = wsjson.Read(ctx, conn, &msg)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusTryAgainLater, websocket.CloseStatus(err), "client is told to reconnect")
	assert.False(t, errors.Is(err, context.DeadlineExceeded))

	select {
	case <-boards.unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("watch subscription not released")
	}
}

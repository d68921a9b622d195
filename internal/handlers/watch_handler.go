package handlers

import (
	"context"
	"time"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const (
	watchBuffer  = 8
	writeTimeout = 3 * time.Second
)

// BoardMessage is the frame pushed to watchers
type BoardMessage struct {
	Type  string        `json:"type"`
	Board *models.Board `json:"board"`
}

// WatchHandler streams the facilitator board over a websocket
type WatchHandler struct {
	boardService   services.BoardService
	originPatterns []string
}

// NewWatchHandler creates a new WatchHandler. originPatterns are the hosts allowed to
// open cross-origin websockets.
func NewWatchHandler(boardService services.BoardService, originPatterns []string) *WatchHandler {
	return &WatchHandler{boardService: boardService, originPatterns: originPatterns}
}

// Watch handles GET /teams/:team/watch. The current board is sent on connect and a fresh
// one after every roster or slot pool modification. If the board feed is lost the socket
// closes with StatusTryAgainLater so the client reconnects and reloads.
func (h *WatchHandler) Watch(c *gin.Context) {
	team := c.Param("team")
	if _, err := h.boardService.Load(c.Request.Context(), team); err != nil {
		respondError(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Websocket upgrade failed", "team", team, "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	clientID := uuid.NewString()
	// Members never send anything; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(c.Request.Context())

	out := make(chan *models.Board, watchBuffer)
	stopped := make(chan error, 1)
	unsubscribe, err := h.boardService.Watch(ctx, team, func(board *models.Board) {
		select {
		case out <- board:
		default:
			// Watcher is behind; drop the oldest board, the newest supersedes it
			select {
			case <-out:
			default:
			}
			select {
			case out <- board:
			default:
			}
		}
	}, func(err error) {
		select {
		case stopped <- err:
		default:
		}
	})
	if err != nil {
		slog.Error("Failed to watch team", "team", team, "client", clientID, "error", err)
		conn.Close(websocket.StatusInternalError, "watch failed")
		return
	}
	defer unsubscribe()

	slog.Info("Watcher connected", "team", team, "client", clientID)
	defer slog.Info("Watcher disconnected", "team", team, "client", clientID)

	// Loaded after subscribing so a change landing in between is not lost. Queued
	// boards follow it and were rebuilt in commit order, so the last frame is current.
	initial, err := h.boardService.Load(ctx, team)
	if err != nil {
		slog.Error("Failed to load board", "team", team, "client", clientID, "error", err)
		conn.Close(websocket.StatusInternalError, "load failed")
		return
	}
	if err := writeBoard(ctx, conn, initial); err != nil {
		slog.Debug("Watcher write failed", "team", team, "client", clientID, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-stopped:
			slog.Warn("Board feed lost, closing watcher", "team", team, "client", clientID, "error", err)
			conn.Close(websocket.StatusTryAgainLater, "board feed lost")
			return
		case board := <-out:
			if err := writeBoard(ctx, conn, board); err != nil {
				slog.Debug("Watcher write failed", "team", team, "client", clientID, "error", err)
				return
			}
		}
	}
}

func writeBoard(ctx context.Context, conn *websocket.Conn, board *models.Board) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, BoardMessage{Type: "board", Board: board})
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/handlers"
	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories/memory"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/ArowuTest/team-raffle-backend/internal/utils"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const catalogYAML = `
teams:
  - teamname: orion
    members:
      - {code: "A1", name: "Ada"}
      - {code: "B2", name: "Bo"}
    options: ["1", "2"]
    prizes: [100, 200]
`

type testServer struct {
	router *gin.Engine
	cfg    *config.Config
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiresIn = 60
	cfg.Auth.FacilitatorPasswordHash = string(hash)
	cfg.Server.AllowedHosts = []string{"localhost:3000"}

	catalog, err := seed.Parse([]byte(catalogYAML))
	require.NoError(t, err)
	repos := memory.NewRepositories(0)

	boardService := services.NewBoardService(repos)
	lifecycleService := services.NewLifecycleService(repos, catalog)
	require.NoError(t, lifecycleService.Provision(context.Background(), "orion"))

	router := SetupRouter(cfg, HandlerDependencies{
		AuthHandler:   handlers.NewAuthHandler(services.NewAuthService(cfg)),
		RaffleHandler: handlers.NewRaffleHandler(services.NewReservationService(repos)),
		FacilitatorHandler: handlers.NewFacilitatorHandler(
			boardService,
			services.NewPresenceService(repos),
			services.NewAllocationService(repos, services.DefaultLowestPrize),
			lifecycleService,
		),
		WatchHandler: handlers.NewWatchHandler(boardService, cfg.Server.AllowedHosts),
	})

	token, err := utils.GenerateJWT(utils.RoleFacilitator, utils.RoleFacilitator, cfg)
	require.NoError(t, err)
	return &testServer{router: router, cfg: cfg, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestLoginRoute(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	code, _ = s.do(t, http.MethodGet, "/api/v1/teams/orion/board", nil, token)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFacilitatorRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/teams/orion/open",
		"/api/v1/teams/orion/allocate",
		"/api/v1/teams/orion/reset",
		"/api/v1/teams/orion/members/A1/status",
	} {
		code, _ := s.do(t, http.MethodPost, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}

	memberToken, err := utils.GenerateJWT("A1", "member", s.cfg)
	require.NoError(t, err)
	code, _ := s.do(t, http.MethodGet, "/api/v1/teams/orion/board", nil, memberToken)
	assert.Equal(t, http.StatusForbidden, code)

	// The token may travel as a query parameter for websocket upgrades
	code, _ = s.do(t, http.MethodGet, "/api/v1/teams/orion/board?token="+s.token, nil, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRaffleFlow(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/teams/orion/members/A1", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ada", body["name"])
	assert.Equal(t, false, body["isOpen"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/teams/orion/claims", map[string]string{"code": "A1", "option": "1"}, "")
	assert.Equal(t, http.StatusConflict, code, "closed raffle")

	code, body = s.do(t, http.MethodPost, "/api/v1/teams/orion/open", nil, s.token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["isOpen"])

	code, body = s.do(t, http.MethodPost, "/api/v1/teams/orion/claims", map[string]string{"code": "A1", "option": "1"}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", body["chosen"])
	assert.Len(t, body["available"], 1)

	code, body = s.do(t, http.MethodPost, "/api/v1/teams/orion/claims", map[string]string{"code": "B2", "option": "1"}, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Len(t, body["available"], 1, "a lost race reports what is left")

	code, _ = s.do(t, http.MethodPost, "/api/v1/teams/orion/claims", map[string]string{"code": "Z9", "option": "2"}, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/teams/orion/allocate", nil, s.token)
	assert.Equal(t, http.StatusConflict, code, "Bo is still pending")

	code, body = s.do(t, http.MethodPost, "/api/v1/teams/orion/members/B2/status", nil, s.token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "absent", body["status"])

	code, _ = s.do(t, http.MethodGet, "/api/v1/teams/orion/results", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodPost, "/api/v1/teams/orion/allocate", nil, s.token)
	require.Equal(t, http.StatusCreated, code)
	results, _ := body["results"].([]any)
	require.Len(t, results, 2)
	absentee, _ := results[1].(map[string]any)
	assert.Equal(t, "Bo", absentee["name"])
	assert.Equal(t, "-", absentee["option"])
	assert.Equal(t, "5,000", absentee["prizeDisplay"])

	code, body = s.do(t, http.MethodGet, "/api/v1/teams/orion/results", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["results"], 2)

	code, _ = s.do(t, http.MethodPost, "/api/v1/teams/orion/allocate", nil, s.token)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodPost, "/api/v1/teams/orion/reset", nil, s.token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["reset"])

	code, body = s.do(t, http.MethodGet, "/api/v1/teams/orion/board", nil, s.token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["isOpen"])
	assert.Equal(t, false, body["concluded"])
	assert.Equal(t, float64(0), body["claimedCount"])
}

func TestUnknownTeam(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/teams/vega/members/A1", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/teams/vega/board", nil, s.token)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/teams/vega/reset", nil, s.token)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestWatchStreamsBoards(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/teams/orion/watch?token=" + s.token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Boards may coalesce, so read until the expected state shows up
	waitFor := func(ok func(*models.Board) bool) {
		t.Helper()
		for {
			var msg handlers.BoardMessage
			require.NoError(t, wsjson.Read(ctx, conn, &msg))
			assert.Equal(t, "board", msg.Type)
			if ok(msg.Board) {
				return
			}
		}
	}

	waitFor(func(b *models.Board) bool { return b.TeamName == "orion" && !b.IsOpen })

	code, _ := s.do(t, http.MethodPost, "/api/v1/teams/orion/open", nil, s.token)
	require.Equal(t, http.StatusOK, code)
	waitFor(func(b *models.Board) bool { return b.IsOpen })

	code, _ = s.do(t, http.MethodPost, "/api/v1/teams/orion/claims", map[string]string{"code": "B2", "option": "2"}, "")
	require.Equal(t, http.StatusOK, code)
	waitFor(func(b *models.Board) bool { return b.ClaimedCount == 1 })
}

func TestWatchRejectsUnknownTeam(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/teams/vega/watch?token=" + s.token
	_, resp, err := websocket.Dial(context.Background(), url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-results/internal/config"
	"github.com/gokatarajesh/quiz-results/internal/db/memory"
	"github.com/gokatarajesh/quiz-results/internal/identity"
	"github.com/gokatarajesh/quiz-results/internal/leaderboard"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
	"github.com/gokatarajesh/quiz-results/internal/results"
	"github.com/gokatarajesh/quiz-results/internal/submission"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type harness struct {
	handler http.Handler
	tokens  *jwt.Manager
}

func newHarness(t *testing.T, store Pinger) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.App{HTTPAddr: ":0"}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.CORS.AllowedHeaders = []string{"Content-Type", "Authorization"}

	resultStore := memory.NewResultStore()
	quizzes := quiz.NewStatic(quiz.Quiz{
		ID:        "q1",
		Title:     "Capitals",
		Questions: []quiz.Question{{ID: "qa", Points: 10, Answers: []quiz.Answer{{ID: "a1", Correct: true}}}},
	})
	disp := submission.NewDispatcher(quizzes, memory.NewLedger(), submission.NewChanQueue(8), nil, zerolog.Nop())
	tokens := jwt.NewManager(jwt.TokenConfig{Secret: []byte("secret")})

	if store == nil {
		store = resultStore
	}
	srv := NewHTTPServer(cfg, zerolog.Nop(), store, client, Handlers{
		Tokens:      tokens,
		Submissions: submission.NewHTTPHandler(disp, zerolog.Nop()),
		Results:     results.NewHTTPHandler(resultStore, zerolog.Nop()),
		Leaderboard: leaderboard.NewHTTPHandler(leaderboard.NewAggregator(resultStore), identity.NewStatic(nil), zerolog.Nop()),
	})
	return &harness{handler: srv.Handler, tokens: tokens}
}

func (h *harness) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authed {
		token, err := h.tokens.Issue("42", "", jwt.RoleUser)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndPing(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = h.do(t, http.MethodGet, "/v1/ping", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pong":true}`, rec.Body.String())
}

func TestPingReportsStoreFailure(t *testing.T) {
	h := newHarness(t, failingPinger{})
	rec := h.do(t, http.MethodGet, "/v1/ping", "", false)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRoutes(t *testing.T) {
	h := newHarness(t, nil)

	submit := h.do(t, http.MethodPost, "/results/submit?quiz_id=q1",
		`{"answers":[{"question_id":"qa","answer_ids":["a1"]}],"time_spent_seconds":10}`, true)
	assert.Equal(t, http.StatusAccepted, submit.Code)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/results/submit?quiz_id=q1", `{}`, false).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/results/my-results", "", true).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/results/submissions", "", true).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/results/leaderboard/q1", "", false).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/results/quiz/q1", "", true).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/results/unknown-id", "", true).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/results/submit", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUpgraderOriginCheck(t *testing.T) {
	up := NewUpgrader([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws/results", nil)
	assert.True(t, up.CheckOrigin(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, up.CheckOrigin(req))
}

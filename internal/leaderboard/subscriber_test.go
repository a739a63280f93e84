package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-results/internal/auth"
	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-results/internal/notify"
	ws "github.com/gokatarajesh/quiz-results/pkg/http/ws"
)

func TestBroadcasterPushesResultToPlayerSocket(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := ws.NewHub(zerolog.Nop())
	mgr := jwt.NewManager(jwt.TokenConfig{Secret: []byte("s")})
	socket := NewSocketHandler(hub, &websocket.Upgrader{}, zerolog.Nop())
	srv := httptest.NewServer(auth.Middleware(mgr, zerolog.Nop())(http.HandlerFunc(socket.HandleWebSocket)))
	defer srv.Close()

	token, err := mgr.Issue("42", "", jwt.RoleUser)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/results?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewBroadcaster(client, hub, "", zerolog.Nop())
	go b.Run(ctx)
	require.Eventually(t, func() bool {
		return client.PubSubNumSub(ctx, notify.DefaultChannel).Val()[notify.DefaultChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	pub := notify.NewPubSubNotifier(client, "")
	require.NoError(t, pub.Notify(ctx, notify.Message{PlayerID: "7", ResultID: "other"}))
	require.NoError(t, pub.Notify(ctx, notify.Message{PlayerID: "42", ResultID: "r1", QuizID: "q", Score: 9, MaxScore: 10, Rank: 1}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeResultReady, msg.Type)

	var payload ws.ResultReadyPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "r1", payload.ResultID)
	assert.Equal(t, 9.0, payload.Score)
}

func TestSocketHandlerAnswersPing(t *testing.T) {
	hub := ws.NewHub(zerolog.Nop())
	mgr := jwt.NewManager(jwt.TokenConfig{Secret: []byte("s")})
	socket := NewSocketHandler(hub, &websocket.Upgrader{}, zerolog.Nop())
	srv := httptest.NewServer(auth.Middleware(mgr, zerolog.Nop())(http.HandlerFunc(socket.HandleWebSocket)))
	defer srv.Close()

	token, _ := mgr.Issue("42", "", jwt.RoleUser)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "abc"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypePong, msg.Type)
	assert.Equal(t, "abc", msg.RequestID)
}

func TestSocketHandlerRequiresToken(t *testing.T) {
	socket := NewSocketHandler(ws.NewHub(zerolog.Nop()), &websocket.Upgrader{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	socket.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws/results", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

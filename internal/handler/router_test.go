package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kchat/internal/app/chat"
	"kchat/internal/app/user"
	"kchat/internal/configs"
	"kchat/internal/pkg/errs"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:     "development",
		AllowedOrigins:  []string{"http://localhost:5173"},
		ConnectRate:     100,
		ConnectBurst:    100,
		MaxMessageBytes: 8192,
		MaxAvatarBytes:  4096,
		SendQueueSize:   64,
		MessageRate:     100,
		MessageBurst:    100,
		RelayToSender:   true,
	}
}

type testServer struct {
	*httptest.Server
	room *chat.Room
}

func newTestServer(t *testing.T, cfg *configs.AppConfig) *testServer {
	t.Helper()

	room := chat.NewRoom(cfg)
	go room.Run()

	h, connectLimiter := Router(&AppDeps{Room: room, Config: cfg})
	srv := httptest.NewServer(h)

	t.Cleanup(func() {
		room.Stop()
		<-room.Done()
		srv.Close()
		connectLimiter.Stop()
	})

	return &testServer{Server: srv, room: room}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event chat.EventName, data any) {
	t.Helper()
	frame, err := chat.EncodeFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func expect(t *testing.T, conn *websocket.Conn, event chat.EventName) chat.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := chat.ParseEnvelope(frame)
	require.NoError(t, err)
	require.Equal(t, event, env.Event, string(frame))
	return env
}

func decode[T any](t *testing.T, env chat.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func names(users []user.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestWebSocket_ChatSession(t *testing.T) {
	srv := newTestServer(t, testConfig())

	// Scenario A: alice logs in.
	x := srv.dial(t)
	send(t, x, chat.EventLogin, user.User{Username: "alice", Avatar: "a.png"})
	assert.Equal(t, "alice", decode[user.User](t, expect(t, x, chat.EventLoginSuccess)).Username)
	assert.Equal(t, "alice", decode[user.User](t, expect(t, x, chat.EventJoinRoom)).Username)
	assert.Equal(t, []string{"alice"}, names(decode[[]user.User](t, expect(t, x, chat.EventUserList))))

	// Scenario B: a second client cannot take the same name.
	y := srv.dial(t)
	send(t, y, chat.EventLogin, user.User{Username: "alice"})
	rejected := decode[chat.ErrorPayload](t, expect(t, y, chat.EventUserExist))
	assert.Equal(t, errs.ErrUserAlreadyExists, rejected.Code)

	send(t, y, chat.EventLogin, user.User{Username: "bob"})
	expect(t, y, chat.EventLoginSuccess)
	expect(t, y, chat.EventJoinRoom)
	assert.Equal(t, []string{"alice", "bob"}, names(decode[[]user.User](t, expect(t, y, chat.EventUserList))))

	assert.Equal(t, "bob", decode[user.User](t, expect(t, x, chat.EventJoinRoom)).Username)
	expect(t, x, chat.EventUserList)

	// Scenario D: alice's message reaches bob, and echoes back to alice.
	send(t, x, chat.EventSendMessage, map[string]any{"text": "hi", "username": "alice"})
	assert.JSONEq(t, `{"text":"hi","username":"alice"}`, string(expect(t, y, chat.EventReceiveMessage).Data))
	assert.JSONEq(t, `{"text":"hi","username":"alice"}`, string(expect(t, x, chat.EventReceiveMessage).Data))

	// Scenario C: alice disconnects abruptly.
	require.NoError(t, x.Close())
	assert.Equal(t, chat.LeavePayload{Username: "alice"}, decode[chat.LeavePayload](t, expect(t, y, chat.EventLeaveRoom)))
	assert.Equal(t, []string{"bob"}, names(decode[[]user.User](t, expect(t, y, chat.EventUserList))))

	users, err := srv.room.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names(users))
}

func TestWebSocket_MalformedFramesStayLocal(t *testing.T) {
	srv := newTestServer(t, testConfig())

	x := srv.dial(t)
	send(t, x, chat.EventLogin, user.User{Username: "alice"})
	expect(t, x, chat.EventLoginSuccess)
	expect(t, x, chat.EventJoinRoom)
	expect(t, x, chat.EventUserList)

	y := srv.dial(t)
	require.NoError(t, y.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, errs.ErrInvalidJSONFormat, decode[chat.ErrorPayload](t, expect(t, y, chat.EventError)).Code)

	send(t, y, chat.EventLogin, map[string]any{"username": ""})
	assert.Equal(t, errs.ErrInvalidUsername, decode[chat.ErrorPayload](t, expect(t, y, chat.EventError)).Code)

	// y is still usable and x saw none of the above.
	send(t, y, chat.EventSendMessage, map[string]string{"text": "still here"})
	expect(t, y, chat.EventReceiveMessage)
	expect(t, x, chat.EventReceiveMessage)
}

func TestWebSocket_MessageRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MessageRate = 0.001
	cfg.MessageBurst = 1
	srv := newTestServer(t, cfg)

	x := srv.dial(t)
	send(t, x, chat.EventSendMessage, map[string]string{"text": "one"})
	expect(t, x, chat.EventReceiveMessage)

	send(t, x, chat.EventSendMessage, map[string]string{"text": "two"})
	assert.Equal(t, errs.ErrRateLimitExceeded, decode[chat.ErrorPayload](t, expect(t, x, chat.EventError)).Code)
}

func TestWebSocket_ConnectRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectRate = 0.001
	cfg.ConnectBurst = 1
	srv := newTestServer(t, cfg)

	srv.dial(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func TestWebSocket_OriginCheckInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	srv := newTestServer(t, cfg)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	conn.Close()
}

func TestHealthAndUsersEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig())

	x := srv.dial(t)
	send(t, x, chat.EventLogin, user.User{Username: "alice"})
	expect(t, x, chat.EventLoginSuccess)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/room/users")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Code int `json:"code"`
		Data struct {
			Users []user.User `json:"users"`
			Count int         `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, 1, body.Data.Count)
	assert.Equal(t, []string{"alice"}, names(body.Data.Users))
}

func TestUsersEndpoint_RoomStopped(t *testing.T) {
	srv := newTestServer(t, testConfig())
	srv.room.Stop()
	<-srv.room.Done()

	res, err := http.Get(srv.URL + "/api/room/users")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestWebSocket_RoomStoppedClosesUpgradedConnection(t *testing.T) {
	srv := newTestServer(t, testConfig())
	srv.room.Stop()
	<-srv.room.Done()

	conn := srv.dial(t)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

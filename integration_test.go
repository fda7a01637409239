package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- helpers ----------

type testEnv struct {
	srv   *httptest.Server
	wsURL string
	hub   *Hub
	rooms *RoomRegistry
}

// startTestServer spins up an httptest.Server with the full route table.
// db may be nil to run without round history.
func startTestServer(t *testing.T, db *DB) *testEnv {
	t.Helper()

	// a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644))

	invites, err := NewInvites("integration-secret", "")
	require.NoError(t, err)
	rooms := NewRoomRegistry(nil)
	hub := NewHub(rooms)

	srv := httptest.NewServer(SetupRoutes(&Server{hub: hub, invites: invites, db: db}, tmpDir))
	t.Cleanup(func() {
		srv.Close()
		rooms.StopAll()
	})

	return &testEnv{
		srv:   srv,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:   hub,
		rooms: rooms,
	}
}

// dialWS opens a WebSocket connection with the given query
func dialWS(t *testing.T, env *testEnv, query url.Values) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL+"?"+query.Encode(), nil)
	require.NoError(t, err, "dial WS")
	t.Cleanup(func() { conn.Close() })
	return conn
}

// wireMsg is a union of every server -> client JSON message
type wireMsg struct {
	Type    string    `json:"type"`
	Player  string    `json:"player"`
	Name    string    `json:"name"`
	Owner   bool      `json:"owner"`
	Message string    `json:"message"`
	Game    GameState `json:"game"`
}

// readUntil reads text frames until match returns true
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMsg) bool) wireMsg {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		msgType, raw, err := conn.ReadMessage()
		require.NoError(t, err, "read WS")
		if msgType != websocket.TextMessage {
			continue
		}
		var msg wireMsg
		require.NoError(t, json.Unmarshal(raw, &msg))
		if match(msg) {
			return msg
		}
	}
	t.Fatal("timed out waiting for message")
	return wireMsg{}
}

func ofType(typ string) func(wireMsg) bool {
	return func(m wireMsg) bool { return m.Type == typ }
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func getJSON(t *testing.T, rawURL string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

// ---------- tests ----------

func TestWSJoinWelcomeAndState(t *testing.T) {
	env := startTestServer(t, nil)
	conn := dialWS(t, env, url.Values{"room": {"red"}, "name": {"Ann"}})

	welcome := readUntil(t, conn, ofType(MsgWelcome))
	assert.Equal(t, "P1", welcome.Player)
	assert.Equal(t, "Ann", welcome.Name)
	assert.True(t, welcome.Owner)

	state := readUntil(t, conn, ofType(MsgState))
	assert.Equal(t, "waiting", state.Game.Phase)
	require.Len(t, state.Game.Players, 1)
	assert.Equal(t, "Ann", state.Game.Players[0].Name)

	var rooms []RoomInfo
	getJSON(t, env.srv.URL+"/api/rooms", &rooms)
	assert.Equal(t, []RoomInfo{{Code: "RED", Players: 1, Phase: "waiting"}}, rooms)
}

func TestWSSecondPlayerIsNotOwner(t *testing.T) {
	env := startTestServer(t, nil)
	first := dialWS(t, env, url.Values{"room": {"duo"}})
	readUntil(t, first, ofType(MsgWelcome))

	second := dialWS(t, env, url.Values{"room": {"duo"}, "name": {"Bob"}})
	welcome := readUntil(t, second, ofType(MsgWelcome))
	assert.Equal(t, "P2", welcome.Player)
	assert.False(t, welcome.Owner)

	readUntil(t, first, func(m wireMsg) bool {
		return m.Type == MsgToast && m.Message == "Bob joined"
	})
}

func TestWSStartAndThrow(t *testing.T) {
	env := startTestServer(t, nil)
	conn := dialWS(t, env, url.Values{"room": {"play"}})
	readUntil(t, conn, ofType(MsgWelcome))

	sendJSON(t, conn, map[string]interface{}{"type": MsgStart})
	readUntil(t, conn, ofType(MsgStart))

	sendJSON(t, conn, map[string]interface{}{"type": MsgThrow, "id": "P1", "vx": 1, "vy": 0})
	moving := readUntil(t, conn, func(m wireMsg) bool {
		return m.Type == MsgState && len(m.Game.Players) == 1 && m.Game.Players[0].Ball.VX != 0
	})
	assert.Equal(t, "playing", moving.Game.Phase)
	assert.LessOrEqual(t, moving.Game.Players[0].Ball.VX, 4.0)
}

func TestWSMalformedMessagesIgnored(t *testing.T) {
	env := startTestServer(t, nil)
	conn := dialWS(t, env, url.Values{"room": {"noise"}})
	readUntil(t, conn, ofType(MsgWelcome))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	sendJSON(t, conn, map[string]interface{}{"type": "dance"})

	// connection survives and keeps receiving state
	readUntil(t, conn, ofType(MsgState))
}

func TestWSMsgpackState(t *testing.T) {
	env := startTestServer(t, nil)
	conn := dialWS(t, env, url.Values{"room": {"bin"}, "enc": {"msgpack"}})
	readUntil(t, conn, ofType(MsgWelcome))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		msgType, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		if msgType != websocket.BinaryMessage {
			continue
		}
		var msg StateMsg
		require.NoError(t, DecodeBinary(raw, &msg))
		assert.Equal(t, MsgState, msg.Type)
		assert.Len(t, msg.Game.Players, 1)
		return
	}
}

func TestWSRoomFull(t *testing.T) {
	env := startTestServer(t, nil)
	for i := range MaxPlayersPerRoom {
		_, _, err := env.rooms.Join("FULL", fmt.Sprintf("seed%d", i), "", &fakeConn{})
		require.NoError(t, err)
	}

	conn := dialWS(t, env, url.Values{"room": {"full"}})
	toast := readUntil(t, conn, ofType(MsgToast))
	assert.Equal(t, "Room FULL is full", toast.Message)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, MaxPlayersPerRoom, env.rooms.Get("FULL").PlayerCount())
}

func TestWSLeaveDestroysRoom(t *testing.T) {
	env := startTestServer(t, nil)
	conn := dialWS(t, env, url.Values{"room": {"brief"}})
	readUntil(t, conn, ofType(MsgWelcome))
	room := env.rooms.Get("BRIEF")
	require.NotNil(t, room)

	conn.Close()
	assert.Eventually(t, func() bool {
		return env.rooms.Count() == 0 && env.hub.ClientCount() == 0 && env.hub.TotalConns() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, room.Stopped())
}

func TestWSConnectionCapPerIP(t *testing.T) {
	env := startTestServer(t, nil)
	for range maxConnsPerIP {
		conn := dialWS(t, env, url.Values{"room": {"cap"}})
		readUntil(t, conn, ofType(MsgWelcome))
	}

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL+"?room=cap", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInviteFlow(t *testing.T) {
	env := startTestServer(t, nil)

	var inv inviteResponse
	resp := getJSON(t, env.srv.URL+"/api/invite?room=blue", &inv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "BLUE", inv.Room)
	assert.Contains(t, inv.URL, "invite="+url.QueryEscape(inv.Token))

	// the invite wins over the room parameter
	conn := dialWS(t, env, url.Values{"room": {"other"}, "invite": {inv.Token}})
	readUntil(t, conn, ofType(MsgWelcome))
	assert.NotNil(t, env.rooms.Get("BLUE"))
	assert.Nil(t, env.rooms.Get("OTHER"))
}

func TestBadInviteRejected(t *testing.T) {
	env := startTestServer(t, nil)
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL+"?invite=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.rooms.Count())
}

func TestQREndpoint(t *testing.T) {
	env := startTestServer(t, nil)
	resp, err := http.Get(env.srv.URL + "/qr?room=red")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestHistoryEndpoints(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := startTestServer(t, nil)
		assert.Equal(t, http.StatusNotFound, getJSON(t, env.srv.URL+"/api/rounds", nil).StatusCode)
		assert.Equal(t, http.StatusNotFound, getJSON(t, env.srv.URL+"/api/leaderboard", nil).StatusCode)
	})

	t.Run("enabled", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, db.RecordRound(RoundResult{Room: "RED", Winner: "P1", WinnerName: "Ann", Players: 2, DurationMs: 5000, EndedAt: time.Now()}))
		env := startTestServer(t, db)

		var rounds []RoundResult
		resp := getJSON(t, env.srv.URL+"/api/rounds?limit=5", &rounds)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, rounds, 1)
		assert.Equal(t, "Ann", rounds[0].WinnerName)

		var board []LeaderboardEntry
		getJSON(t, env.srv.URL+"/api/leaderboard", &board)
		assert.Equal(t, []LeaderboardEntry{{Rank: 1, Name: "Ann", Wins: 1, BestTimeMs: 5000}}, board)
	})
}

func TestStaticFilesNoCache(t *testing.T) {
	env := startTestServer(t, nil)
	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
}

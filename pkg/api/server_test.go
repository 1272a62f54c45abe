package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/api/handlers"
	"github.com/cbodonnell/cloudflight/pkg/game"
	"github.com/cbodonnell/cloudflight/pkg/messages"
	"github.com/cbodonnell/cloudflight/pkg/network"
	"github.com/cbodonnell/cloudflight/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type testServer struct {
	url          string
	stateManager *state.InMemoryStateManager
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	stateManager := state.NewInMemoryStateManager()
	sessions := game.NewSessionManager(game.NewSessionManagerOptions{StateManager: stateManager})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sessions.Run(ctx)
	}()

	router := NewRouter(NewAPIServerOptions{
		WebSocketHandler: network.NewWSHandler(network.NewWSHandlerOptions{Sessions: sessions}),
		StateManager:     stateManager,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})

	return &testServer{url: srv.URL, stateManager: stateManager}
}

func dial(t *testing.T, baseURL, path string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(baseURL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, message interface{}) {
	t.Helper()
	b, err := json.Marshal(message)
	require.NoError(t, err)
	sendRaw(t, conn, b)
}

func sendRaw(t *testing.T, conn *websocket.Conn, b []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))
}

// readType reads frames until one of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, messageType string) *messages.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, b, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", messageType)
		message, err := messages.DecodeServerMessage(b)
		require.NoError(t, err)
		if message.Type == messageType {
			return message
		}
	}
}

func TestHealthz(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.url + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelayEndToEnd(t *testing.T) {
	ts := startTestServer(t)

	pilot1 := dial(t, ts.url, "/")
	init1 := readType(t, pilot1, messages.MessageTypeServerInit)
	assert.Equal(t, 1, init1.PlayerCount)

	pilot2 := dial(t, ts.url, "/ws")
	init2 := readType(t, pilot2, messages.MessageTypeServerInit)
	assert.Equal(t, 2, init2.PlayerCount)

	joined := readType(t, pilot1, messages.MessageTypeServerPlayerJoined)
	assert.Equal(t, init2.PlayerID, joined.PlayerID)
	assert.Equal(t, 2, joined.PlayerCount)

	// garbage is dropped and the connection stays usable
	sendRaw(t, pilot1, []byte("garbage"))
	send(t, pilot1, messages.NewClientInput(messages.Input{Throttle: 1}))

	update := readType(t, pilot2, messages.MessageTypeServerPlayerUpdate)
	assert.Equal(t, init1.PlayerID, update.PlayerID)
	assert.Greater(t, update.Position.Z, 0.0)

	send(t, pilot2, messages.NewClientRequestNearbyPlayers())
	nearby := readType(t, pilot2, messages.MessageTypeServerNearbyPlayers)
	require.Len(t, nearby.Players, 1)
	assert.Equal(t, init1.PlayerID, nearby.Players[0].ID)
	assert.Equal(t, update.Position, nearby.Players[0].Position)

	resp, err := http.Get(ts.url + "/api/players")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var list handlers.PlayerList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 2, list.PlayerCount)
	require.Len(t, list.Players, 2)

	require.NoError(t, pilot2.Close(websocket.StatusNormalClosure, "bye"))
	left := readType(t, pilot1, messages.MessageTypeServerPlayerLeft)
	assert.Equal(t, init2.PlayerID, left.PlayerID)
	assert.Equal(t, 1, left.PlayerCount)
}

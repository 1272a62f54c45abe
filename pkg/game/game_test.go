package game

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	mocks "github.com/cbodonnell/cloudflight/mocks/github.com/cbodonnell/cloudflight/pkg/game"
	"github.com/cbodonnell/cloudflight/pkg/game/constants"
	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
	"github.com/cbodonnell/cloudflight/pkg/messages"
	"github.com/cbodonnell/cloudflight/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeConnection records every frame sent to it.
type fakeConnection struct {
	lock   sync.Mutex
	open   bool
	frames [][]byte
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{open: true}
}

func (c *fakeConnection) Send(payload []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.frames = append(c.frames, payload)
	return nil
}

func (c *fakeConnection) IsOpen() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.open
}

func (c *fakeConnection) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.open = false
	return nil
}

func (c *fakeConnection) reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.frames = nil
}

func (c *fakeConnection) messages(t *testing.T) []*messages.ServerMessage {
	c.lock.Lock()
	defer c.lock.Unlock()
	result := make([]*messages.ServerMessage, 0, len(c.frames))
	for _, frame := range c.frames {
		message, err := messages.DecodeServerMessage(frame)
		require.NoError(t, err)
		result = append(result, message)
	}
	return result
}

func (c *fakeConnection) messagesOfType(t *testing.T, messageType string) []*messages.ServerMessage {
	var result []*messages.ServerMessage
	for _, message := range c.messages(t) {
		if message.Type == messageType {
			result = append(result, message)
		}
	}
	return result
}

// lastPlayerCount returns the player count carried by the most recent
// init, playerJoined or playerLeft message.
func (c *fakeConnection) lastPlayerCount(t *testing.T) int {
	count := -1
	for _, message := range c.messages(t) {
		switch message.Type {
		case messages.MessageTypeServerInit, messages.MessageTypeServerPlayerJoined, messages.MessageTypeServerPlayerLeft:
			count = message.PlayerCount
		}
	}
	return count
}

func connect(t *testing.T, sm *SessionManager, conn Connection) *types.Player {
	player, err := sm.Connect(conn)
	require.NoError(t, err)
	return player
}

func inputFrame(t *testing.T, in messages.Input) []byte {
	b, err := json.Marshal(messages.NewClientInput(in))
	require.NoError(t, err)
	return b
}

func TestSessionManager_Connect(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sm := NewSessionManager(NewSessionManagerOptions{Clock: func() time.Time { return now }})

	conn1 := newFakeConnection()
	player1 := connect(t, sm, conn1)
	assert.True(t, strings.HasPrefix(player1.ID, constants.PlayerIDPrefix))
	assert.Len(t, player1.ID, len(constants.PlayerIDPrefix)+8)
	assert.Equal(t, constants.SpawnPosition, player1.Position)
	assert.Equal(t, kinematic.Vector{}, player1.Rotation)
	assert.Equal(t, kinematic.Vector{}, player1.Velocity)
	assert.Equal(t, now, player1.LastUpdate)

	got := conn1.messages(t)
	require.Len(t, got, 1)
	assert.Equal(t, messages.MessageTypeServerInit, got[0].Type)
	assert.Equal(t, player1.ID, got[0].PlayerID)
	assert.Equal(t, constants.SpawnPosition, got[0].Position)
	assert.Equal(t, 1, got[0].PlayerCount)

	conn1.reset()
	conn2 := newFakeConnection()
	player2 := connect(t, sm, conn2)
	assert.NotEqual(t, player1.ID, player2.ID)

	got = conn2.messages(t)
	require.Len(t, got, 1, "a joining player only receives its own init")
	assert.Equal(t, messages.MessageTypeServerInit, got[0].Type)
	assert.Equal(t, 2, got[0].PlayerCount)

	got = conn1.messages(t)
	require.Len(t, got, 1)
	assert.Equal(t, messages.MessageTypeServerPlayerJoined, got[0].Type)
	assert.Equal(t, player2.ID, got[0].PlayerID)
	assert.Equal(t, constants.SpawnPosition, got[0].Position)
	assert.Equal(t, kinematic.Vector{}, got[0].Rotation)
	assert.Equal(t, 2, got[0].PlayerCount)

	_, err := sm.Connect(conn1)
	assert.Error(t, err, "a connection maps to exactly one player")
	assert.Equal(t, 2, sm.PlayerCount())
}

func TestSessionManager_Disconnect(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	conn1, conn2, conn3 := newFakeConnection(), newFakeConnection(), newFakeConnection()
	connect(t, sm, conn1)
	player2 := connect(t, sm, conn2)
	connect(t, sm, conn3)
	conn1.reset()
	conn2.reset()
	conn3.reset()

	sm.Disconnect(conn2)
	assert.Equal(t, 2, sm.PlayerCount())
	_, ok := sm.Player(player2.ID)
	assert.False(t, ok)

	for _, conn := range []*fakeConnection{conn1, conn3} {
		got := conn.messages(t)
		require.Len(t, got, 1)
		assert.Equal(t, messages.MessageTypeServerPlayerLeft, got[0].Type)
		assert.Equal(t, player2.ID, got[0].PlayerID)
		assert.Equal(t, 2, got[0].PlayerCount)
	}
	assert.Empty(t, conn2.messages(t))

	// a second disconnect for the same connection is a no-op
	sm.Disconnect(conn2)
	assert.Equal(t, 2, sm.PlayerCount())
	assert.Len(t, conn1.messages(t), 1)
}

func TestSessionManager_PlayerCountConsistency(t *testing.T) {
	tests := []struct {
		name        string
		connects    int
		disconnects []int
	}{
		{name: "no disconnects", connects: 4, disconnects: nil},
		{name: "some disconnects", connects: 5, disconnects: []int{1, 3, 4}},
		{name: "first player leaves", connects: 3, disconnects: []int{0}},
		{name: "all but one leave", connects: 4, disconnects: []int{3, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSessionManager(NewSessionManagerOptions{})
			conns := make([]*fakeConnection, tt.connects)
			for i := range conns {
				conns[i] = newFakeConnection()
				connect(t, sm, conns[i])
			}
			gone := make(map[int]bool)
			for _, i := range tt.disconnects {
				sm.Disconnect(conns[i])
				gone[i] = true
			}

			want := tt.connects - len(tt.disconnects)
			assert.Equal(t, want, sm.PlayerCount())
			for i, conn := range conns {
				if gone[i] {
					continue
				}
				assert.Equal(t, want, conn.lastPlayerCount(t), "connection %d", i)
			}
		})
	}
}

func TestSessionManager_IDsAreNeverReused(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		conn := newFakeConnection()
		player := connect(t, sm, conn)
		assert.False(t, seen[player.ID], "id %s issued twice", player.ID)
		seen[player.ID] = true
		sm.Disconnect(conn)
	}
	assert.Len(t, sm.issuedIDs, 200)
}

func TestSessionManager_InputScenario(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	conn1, conn2 := newFakeConnection(), newFakeConnection()
	player1 := connect(t, sm, conn1)
	connect(t, sm, conn2)
	conn1.reset()
	conn2.reset()

	frame := inputFrame(t, messages.Input{Throttle: 1})
	for i := 0; i < 60; i++ {
		sm.HandleMessage(conn1, frame)
	}

	got, ok := sm.Player(player1.ID)
	require.True(t, ok)
	assert.InDelta(t, 0, got.Position.X, 1e-9)
	assert.InDelta(t, constants.SpawnPosition.Y, got.Position.Y, 1e-9)
	assert.InDelta(t, constants.CruiseSpeed, got.Position.Z, 1e-6)
	assert.InDelta(t, constants.CruiseSpeed, kinematic.Airspeed(got.Velocity), 1e-9)

	updates := conn2.messagesOfType(t, messages.MessageTypeServerPlayerUpdate)
	require.Len(t, updates, 60)
	for i, update := range updates {
		assert.Equal(t, player1.ID, update.PlayerID)
		assert.InDelta(t, float64(i+1)*constants.CruiseSpeed*constants.TickDeltaTime, update.Position.Z, 1e-6)
	}
	assert.Equal(t, got.Position, updates[59].Position)
	assert.Equal(t, got.Velocity, updates[59].Velocity)

	assert.Empty(t, conn1.messages(t), "the sender does not receive its own updates")
}

func TestSessionManager_BroadcastScoping(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	near, far, sender := newFakeConnection(), newFakeConnection(), newFakeConnection()
	connect(t, sm, near)
	farPlayer := connect(t, sm, far)
	senderPlayer := connect(t, sm, sender)

	sm.gameState.Players[farPlayer.ID].Position = kinematic.Vector{X: constants.InterestRadius + 1, Y: 1000}
	near.reset()
	far.reset()

	sm.HandleMessage(sender, inputFrame(t, messages.Input{Yaw: 0.5, Throttle: 0.5}))

	updates := near.messagesOfType(t, messages.MessageTypeServerPlayerUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, senderPlayer.ID, updates[0].PlayerID)
	assert.Empty(t, far.messages(t))
}

func TestSessionManager_RequestNearbyPlayers(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	requester := newFakeConnection()
	connect(t, sm, requester)
	request := []byte(`{"type":"requestNearbyPlayers"}`)

	requester.reset()
	sm.HandleMessage(requester, request)
	require.Len(t, requester.frames, 1)
	assert.JSONEq(t, `{"type":"nearbyPlayers","players":[]}`, string(requester.frames[0]))

	others := []*fakeConnection{newFakeConnection(), newFakeConnection(), newFakeConnection()}
	for _, conn := range others {
		connect(t, sm, conn)
		conn.reset()
	}
	requester.reset()

	sm.HandleMessage(requester, request)
	got := requester.messages(t)
	require.Len(t, got, 1)
	assert.Equal(t, messages.MessageTypeServerNearbyPlayers, got[0].Type)
	require.Len(t, got[0].Players, 3)

	ids := make([]string, 0, 3)
	for _, snapshot := range got[0].Players {
		ids = append(ids, snapshot.ID)
		assert.Equal(t, constants.SpawnPosition, snapshot.Position)
		assert.Equal(t, kinematic.Vector{}, snapshot.Rotation)
		assert.Equal(t, kinematic.Vector{}, snapshot.Velocity)
	}
	assert.IsIncreasing(t, ids)

	for _, conn := range others {
		assert.Empty(t, conn.messages(t), "the reply goes to the requester only")
	}
}

func TestSessionManager_HandleMessageDropsBadFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `not json`},
		{name: "truncated", raw: `{"type":"input","input":{"pitch":1}`},
		{name: "missing input", raw: `{"type":"input"}`},
		{name: "wrong field type", raw: `{"type":"input","input":{"throttle":"full"}}`},
		{name: "unknown type", raw: `{"type":"barrelRoll","input":{"roll":1}}`},
		{name: "no type", raw: `{"input":{"throttle":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSessionManager(NewSessionManagerOptions{})
			sender, other := newFakeConnection(), newFakeConnection()
			player := connect(t, sm, sender)
			connect(t, sm, other)
			sender.reset()
			other.reset()

			sm.HandleMessage(sender, []byte(tt.raw))

			assert.Empty(t, sender.messages(t))
			assert.Empty(t, other.messages(t))
			assert.True(t, sender.IsOpen())
			got, ok := sm.Player(player.ID)
			require.True(t, ok)
			assert.Equal(t, player.Position, got.Position)
			assert.Equal(t, player.Rotation, got.Rotation)

			// the connection keeps working afterwards
			sm.HandleMessage(sender, inputFrame(t, messages.Input{Throttle: 1}))
			assert.Len(t, other.messagesOfType(t, messages.MessageTypeServerPlayerUpdate), 1)
		})
	}
}

func TestSessionManager_HandleMessageAliases(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	conn := newFakeConnection()
	player := connect(t, sm, conn)

	sm.HandleMessage(conn, []byte(`{"type":"input","input":{"elevator":1,"rudder":-1,"aileron":0.5}}`))

	got, _ := sm.Player(player.ID)
	step := constants.RotationRate * constants.TickDeltaTime
	assert.InDelta(t, step, got.Rotation.X, 1e-12)
	assert.InDelta(t, -step, got.Rotation.Y, 1e-12)
	assert.InDelta(t, step/2, got.Rotation.Z, 1e-12)
}

func TestSessionManager_IgnoresUnregisteredConnections(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	member := newFakeConnection()
	connect(t, sm, member)
	member.reset()

	stranger := newFakeConnection()
	sm.HandleMessage(stranger, inputFrame(t, messages.Input{Throttle: 1}))
	sm.HandleMessage(stranger, []byte(`{"type":"requestNearbyPlayers"}`))
	sm.Disconnect(stranger)

	assert.Empty(t, member.messages(t))
	assert.Empty(t, stranger.messages(t))
	assert.Equal(t, 1, sm.PlayerCount())
}

func TestSessionManager_SkipsClosedConnections(t *testing.T) {
	sm := NewSessionManager(NewSessionManagerOptions{})
	sender := newFakeConnection()
	connect(t, sm, sender)

	closed := mocks.NewConnection(t)
	closed.On("IsOpen").Return(false)
	connect(t, sm, closed)

	sm.HandleMessage(sender, inputFrame(t, messages.Input{Throttle: 1}))
	sm.Disconnect(sender)

	closed.AssertNotCalled(t, "Send", mock.Anything)
}

func TestSessionManager_PublishesStateAndSessionEvents(t *testing.T) {
	stateManager := state.NewInMemoryStateManager()
	sessionEvents := make(chan types.SessionEvent, 2)
	sm := NewSessionManager(NewSessionManagerOptions{
		StateManager:  stateManager,
		SessionEvents: sessionEvents,
	})

	conn1, conn2, conn3 := newFakeConnection(), newFakeConnection(), newFakeConnection()
	player1 := connect(t, sm, conn1)
	player2 := connect(t, sm, conn2)
	// the channel is full now; this join must not block
	connect(t, sm, conn3)

	published, err := stateManager.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, published.PlayerCount())
	assert.NotZero(t, published.Timestamp)

	sm.HandleMessage(conn1, inputFrame(t, messages.Input{Throttle: 1}))
	published, err = stateManager.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published.Players[player1.ID].Position.Z, "input waits for the publish tick")

	sm.publishIfDirty()
	published, err = stateManager.Get(context.Background())
	require.NoError(t, err)
	assert.Greater(t, published.Players[player1.ID].Position.Z, 0.0)

	first := <-sessionEvents
	assert.Equal(t, types.SessionEventJoin, first.Kind)
	assert.Equal(t, player1.ID, first.PlayerID)
	assert.Equal(t, 1, first.PlayerCount)
	second := <-sessionEvents
	assert.Equal(t, player2.ID, second.PlayerID)
	assert.Equal(t, 2, second.PlayerCount)

	sm.Disconnect(conn2)
	leave := <-sessionEvents
	assert.Equal(t, types.SessionEventLeave, leave.Kind)
	assert.Equal(t, player2.ID, leave.PlayerID)
	assert.Equal(t, 2, leave.PlayerCount)
}

// countingStateManager counts Set calls.
type countingStateManager struct {
	*state.InMemoryStateManager
	lock sync.Mutex
	sets int
}

func (m *countingStateManager) Set(ctx context.Context, gameState *types.GameState) error {
	m.lock.Lock()
	m.sets++
	m.lock.Unlock()
	return m.InMemoryStateManager.Set(ctx, gameState)
}

func (m *countingStateManager) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sets
}

func TestSessionManager_InputPublishesOncePerTick(t *testing.T) {
	stateManager := &countingStateManager{InMemoryStateManager: state.NewInMemoryStateManager()}
	sm := NewSessionManager(NewSessionManagerOptions{StateManager: stateManager})
	assert.Equal(t, DefaultPublishInterval, sm.publishInterval)

	conn := newFakeConnection()
	connect(t, sm, conn)
	require.Equal(t, 1, stateManager.count(), "joins publish immediately")

	for i := 0; i < 50; i++ {
		sm.HandleMessage(conn, inputFrame(t, messages.Input{Throttle: 1}))
	}
	assert.Equal(t, 1, stateManager.count())

	sm.publishIfDirty()
	assert.Equal(t, 2, stateManager.count())
	sm.publishIfDirty()
	assert.Equal(t, 2, stateManager.count(), "nothing moved since the last publish")

	// a nearby request does not move anyone
	sm.HandleMessage(conn, []byte(`{"type":"requestNearbyPlayers"}`))
	sm.publishIfDirty()
	assert.Equal(t, 2, stateManager.count())
}

func TestSessionManager_RunPublishesMovement(t *testing.T) {
	stateManager := state.NewInMemoryStateManager()
	sm := NewSessionManager(NewSessionManagerOptions{
		StateManager:    stateManager,
		PublishInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = sm.Run(ctx)
	}()

	conn := newFakeConnection()
	require.NoError(t, sm.QueueConnect(conn))
	require.NoError(t, sm.QueueMessage(conn, inputFrame(t, messages.Input{Throttle: 1})))

	require.Eventually(t, func() bool {
		published, err := stateManager.Get(context.Background())
		if err != nil || published.PlayerCount() != 1 {
			return false
		}
		for _, player := range published.Players {
			return player.Position.Z > 0
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestSessionManager_Run(t *testing.T) {
	stateManager := state.NewInMemoryStateManager()
	sm := NewSessionManager(NewSessionManagerOptions{StateManager: stateManager})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sm.Run(ctx)
	}()

	conn1, conn2 := newFakeConnection(), newFakeConnection()
	require.NoError(t, sm.QueueConnect(conn1))
	require.NoError(t, sm.QueueConnect(conn2))
	require.NoError(t, sm.QueueMessage(conn1, inputFrame(t, messages.Input{Throttle: 1})))
	require.NoError(t, sm.QueueDisconnect(conn2))

	require.Eventually(t, func() bool {
		published, err := stateManager.Get(context.Background())
		return err == nil && published.PlayerCount() == 1 && len(conn1.messagesOfType(t, messages.MessageTypeServerPlayerLeft)) == 1
	}, time.Second, 5*time.Millisecond)

	// conn2 saw conn1's update before it left
	assert.Len(t, conn2.messagesOfType(t, messages.MessageTypeServerPlayerUpdate), 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.False(t, conn1.IsOpen(), "shutdown closes every connection")
	assert.ErrorIs(t, sm.QueueConnect(newFakeConnection()), ErrSessionClosed)
	assert.ErrorIs(t, sm.QueueDisconnect(conn1), ErrSessionClosed)
}

func TestNearby(t *testing.T) {
	center := &types.Player{ID: "pilot_c", Position: kinematic.Vector{X: 0, Y: 1000, Z: 0}}
	players := map[string]*types.Player{
		"pilot_c": center,
		"pilot_b": {ID: "pilot_b", Position: kinematic.Vector{X: 100, Y: 1000, Z: 0}},
		"pilot_a": {ID: "pilot_a", Position: kinematic.Vector{X: 0, Y: 1000, Z: -30000}},
		"pilot_e": {ID: "pilot_e", Position: kinematic.Vector{X: 0, Y: 1000, Z: 50000}},
		"pilot_f": {ID: "pilot_f", Position: kinematic.Vector{X: 0, Y: 1000, Z: 50000.5}},
		"pilot_d": {ID: "pilot_d", Position: kinematic.Vector{X: 40000, Y: 15000, Z: 40000}},
	}

	got := Nearby(center, players, constants.InterestRadius)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"pilot_a", "pilot_b", "pilot_e"}, ids)

	assert.Empty(t, Nearby(center, map[string]*types.Player{"pilot_c": center}, constants.InterestRadius))
}

func TestNearbyIsSymmetric(t *testing.T) {
	positions := []kinematic.Vector{
		{X: 0, Y: 1000, Z: 0},
		{X: 35355, Y: 1000, Z: 35355},
		{X: -20000, Y: 15000, Z: 12000},
		{X: 49999, Y: 10, Z: 0},
		{X: 0, Y: 10, Z: -50000},
		{X: 1e5, Y: 5000, Z: 1e5},
	}
	players := make(map[string]*types.Player)
	for i, pos := range positions {
		id := string(rune('a' + i))
		players[id] = &types.Player{ID: id, Position: pos}
	}

	contains := func(list []*types.Player, id string) bool {
		for _, p := range list {
			if p.ID == id {
				return true
			}
		}
		return false
	}
	for _, a := range players {
		for _, b := range players {
			if a.ID == b.ID {
				continue
			}
			aSeesB := contains(Nearby(a, players, constants.InterestRadius), b.ID)
			bSeesA := contains(Nearby(b, players, constants.InterestRadius), a.ID)
			assert.Equal(t, aSeesB, bSeesA, "%s/%s", a.ID, b.ID)
			assert.Equal(t, kinematic.Distance(a.Position, b.Position) <= constants.InterestRadius, aSeesB)
		}
	}
	assert.False(t, math.IsNaN(kinematic.Distance(positions[0], positions[5])))
}

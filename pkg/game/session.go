package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/game/constants"
	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/messages"
	"github.com/cbodonnell/cloudflight/pkg/metrics"
	"github.com/cbodonnell/cloudflight/pkg/state"
	"github.com/google/uuid"
)

const (
	// PlayerIDMaxRetries represents the maximum number of retries when generating a unique ID
	PlayerIDMaxRetries = 1024
	// DefaultEventQueueSize is the capacity of the session event channel
	DefaultEventQueueSize = 1024
	// DefaultPublishInterval is how often moved players are copied to the state manager
	DefaultPublishInterval = 100 * time.Millisecond
)

// ErrSessionClosed is returned when queueing events after Run has returned.
var ErrSessionClosed = errors.New("session manager is closed")

// Connection is the capability the session manager holds on behalf of a player.
// Send must not block; implementations queue the frame and drop it when backlogged.
type Connection interface {
	Send(payload []byte) error
	IsOpen() bool
	Close() error
}

type sessionEventKind int

const (
	sessionEventConnect sessionEventKind = iota
	sessionEventMessage
	sessionEventDisconnect
)

type sessionEvent struct {
	kind sessionEventKind
	conn Connection
	data []byte
}

// SessionManager owns the player table. Every mutation happens on the
// goroutine running Run, so the table needs no locking.
type SessionManager struct {
	gameState      *types.GameState
	connections    map[string]Connection
	playerIDs      map[Connection]string
	issuedIDs      map[string]struct{}
	events         chan sessionEvent
	done           chan struct{}
	stateManager   state.StateManager
	sessionEvents  chan<- types.SessionEvent
	metrics        *metrics.Metrics
	flightModel    kinematic.FlightModel
	interestRadius float64
	now            func() time.Time
	// dirty is set by input and cleared by publish
	dirty           bool
	publishInterval time.Duration
}

// NewSessionManagerOptions contains options for creating a new SessionManager.
type NewSessionManagerOptions struct {
	// StateManager receives a copy of the table on every join and leave, and
	// at most once per PublishInterval while players are moving. Optional.
	StateManager state.StateManager
	// SessionEvents receives join and leave records for the flight recorder.
	// Sends never block; records are dropped when the channel is full. Optional.
	SessionEvents chan<- types.SessionEvent
	// Metrics is optional.
	Metrics        *metrics.Metrics
	EventQueueSize int
	// FlightModel defaults to constants.FlightModel().
	FlightModel *kinematic.FlightModel
	// InterestRadius defaults to constants.InterestRadius.
	InterestRadius float64
	// Clock defaults to time.Now.
	Clock func() time.Time
	// PublishInterval defaults to DefaultPublishInterval.
	PublishInterval time.Duration
}

func NewSessionManager(opts NewSessionManagerOptions) *SessionManager {
	eventQueueSize := opts.EventQueueSize
	if eventQueueSize <= 0 {
		eventQueueSize = DefaultEventQueueSize
	}
	flightModel := constants.FlightModel()
	if opts.FlightModel != nil {
		flightModel = *opts.FlightModel
	}
	interestRadius := opts.InterestRadius
	if interestRadius <= 0 {
		interestRadius = constants.InterestRadius
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	publishInterval := opts.PublishInterval
	if publishInterval <= 0 {
		publishInterval = DefaultPublishInterval
	}

	sm := &SessionManager{
		gameState:       types.NewGameState(),
		connections:     make(map[string]Connection),
		playerIDs:       make(map[Connection]string),
		issuedIDs:       make(map[string]struct{}),
		events:          make(chan sessionEvent, eventQueueSize),
		done:            make(chan struct{}),
		stateManager:    opts.StateManager,
		sessionEvents:   opts.SessionEvents,
		metrics:         opts.Metrics,
		flightModel:     flightModel,
		interestRadius:  interestRadius,
		now:             now,
		publishInterval: publishInterval,
	}
	if sm.metrics != nil {
		if err := sm.metrics.ObserveEventQueue(sm.PendingEvents); err != nil {
			log.Warn("Failed to observe session event queue: %v", err)
		}
	}
	return sm
}

// Run consumes queued events until ctx is done, then closes every connection.
// Movement is published on a fixed cadence rather than per input.
func (sm *SessionManager) Run(ctx context.Context) error {
	defer sm.shutdown()

	ticker := time.NewTicker(sm.publishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-sm.events:
			sm.handleEvent(event)
		case <-ticker.C:
			sm.publishIfDirty()
		}
	}
}

func (sm *SessionManager) handleEvent(event sessionEvent) {
	switch event.kind {
	case sessionEventConnect:
		if _, err := sm.Connect(event.conn); err != nil {
			log.Error("Failed to connect player: %v", err)
			if err := event.conn.Close(); err != nil {
				log.Debug("Failed to close rejected connection: %v", err)
			}
		}
	case sessionEventMessage:
		sm.HandleMessage(event.conn, event.data)
	case sessionEventDisconnect:
		sm.Disconnect(event.conn)
	default:
		log.Error("Unhandled session event kind: %d", event.kind)
	}
}

func (sm *SessionManager) shutdown() {
	close(sm.done)
	sm.publishIfDirty()
	for id, conn := range sm.connections {
		if err := conn.Close(); err != nil {
			log.Debug("Failed to close connection for player %s: %v", id, err)
		}
	}
	log.Info("Session manager stopped with %d players connected", sm.gameState.PlayerCount())
}

// QueueConnect schedules Connect for conn on the session goroutine.
func (sm *SessionManager) QueueConnect(conn Connection) error {
	return sm.queue(sessionEvent{kind: sessionEventConnect, conn: conn})
}

// QueueMessage schedules HandleMessage for conn on the session goroutine.
func (sm *SessionManager) QueueMessage(conn Connection, data []byte) error {
	return sm.queue(sessionEvent{kind: sessionEventMessage, conn: conn, data: data})
}

// QueueDisconnect schedules Disconnect for conn on the session goroutine.
func (sm *SessionManager) QueueDisconnect(conn Connection) error {
	return sm.queue(sessionEvent{kind: sessionEventDisconnect, conn: conn})
}

// queue blocks while the event channel is full, so events from one
// connection are never dropped or reordered.
func (sm *SessionManager) queue(event sessionEvent) error {
	select {
	case <-sm.done:
		return ErrSessionClosed
	default:
	}

	select {
	case sm.events <- event:
		return nil
	case <-sm.done:
		return ErrSessionClosed
	}
}

// PendingEvents returns the number of events waiting for the session loop.
func (sm *SessionManager) PendingEvents() int {
	return len(sm.events)
}

// Connect registers a new player for conn, sends it init and announces it to
// everyone else.
func (sm *SessionManager) Connect(conn Connection) (*types.Player, error) {
	if id, ok := sm.playerIDs[conn]; ok {
		return nil, fmt.Errorf("connection already registered as player %s", id)
	}

	id, err := sm.generateUniqueID(PlayerIDMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate a unique ID: %v", err)
	}

	player := types.NewPlayer(id, constants.SpawnPosition)
	player.LastUpdate = sm.now()
	sm.gameState.AddPlayer(player)
	sm.connections[id] = conn
	sm.playerIDs[conn] = id
	playerCount := sm.gameState.PlayerCount()

	log.Info("Player %s connected (%d players)", id, playerCount)
	sm.metrics.PlayerConnected(context.Background())
	sm.publish()
	sm.recordEvent(types.SessionEventJoin, id, playerCount)

	sm.sendTo(conn, messages.NewServerInit(id, player.Position, playerCount))
	sm.broadcast(messages.NewServerPlayerJoined(id, player.Position, player.Rotation, playerCount), id)

	return player.Copy(), nil
}

// Disconnect removes the player bound to conn and tells the remaining players.
// Unknown connections are ignored.
func (sm *SessionManager) Disconnect(conn Connection) {
	id, ok := sm.playerIDs[conn]
	if !ok {
		log.Debug("Ignoring disconnect for unregistered connection")
		return
	}

	sm.gameState.RemovePlayer(id)
	delete(sm.connections, id)
	delete(sm.playerIDs, conn)
	playerCount := sm.gameState.PlayerCount()

	log.Info("Player %s disconnected (%d players)", id, playerCount)
	sm.metrics.PlayerDisconnected(context.Background())
	sm.publish()
	sm.recordEvent(types.SessionEventLeave, id, playerCount)

	sm.broadcast(messages.NewServerPlayerLeft(id, playerCount), "")
}

// PlayerCount returns the number of connected players.
func (sm *SessionManager) PlayerCount() int {
	return sm.gameState.PlayerCount()
}

// Player returns a copy of the player with the given id.
func (sm *SessionManager) Player(id string) (*types.Player, bool) {
	player, ok := sm.gameState.Players[id]
	if !ok {
		return nil, false
	}
	return player.Copy(), true
}

// PlayerIDs returns the ids of all connected players, sorted.
func (sm *SessionManager) PlayerIDs() []string {
	ids := make([]string, 0, len(sm.gameState.Players))
	for id := range sm.gameState.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// generateUniqueID generates a player ID that has never been issued by this manager
func (sm *SessionManager) generateUniqueID(maxRetries int) (string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		id := constants.PlayerIDPrefix + uuid.NewString()[:8]
		if _, ok := sm.issuedIDs[id]; ok {
			continue
		}
		sm.issuedIDs[id] = struct{}{}
		return id, nil
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// publishIfDirty publishes only when input moved someone since the last publish.
func (sm *SessionManager) publishIfDirty() {
	if sm.dirty {
		sm.publish()
	}
}

// publish hands a copy of the table to the state manager.
func (sm *SessionManager) publish() {
	sm.dirty = false
	if sm.stateManager == nil {
		return
	}
	snapshot := sm.gameState.Copy()
	snapshot.SetTimestamp(sm.now().UnixMilli())
	if err := sm.stateManager.Set(context.Background(), snapshot); err != nil {
		log.Error("Failed to publish game state: %v", err)
	}
}

func (sm *SessionManager) recordEvent(kind types.SessionEventKind, playerID string, playerCount int) {
	if sm.sessionEvents == nil {
		return
	}
	event := types.SessionEvent{
		Kind:        kind,
		PlayerID:    playerID,
		PlayerCount: playerCount,
		Timestamp:   sm.now(),
	}
	select {
	case sm.sessionEvents <- event:
	default:
		log.Warn("Session event channel full, dropping %s event for player %s", kind, playerID)
	}
}

// sendTo encodes message and sends it to a single connection.
func (sm *SessionManager) sendTo(conn Connection, message interface{}) {
	payload, err := messages.Encode(message)
	if err != nil {
		log.Error("Failed to encode message: %v", err)
		return
	}
	sm.send(conn, payload)
}

// broadcast sends message to every connected player except excludeID.
func (sm *SessionManager) broadcast(message interface{}, excludeID string) {
	payload, err := messages.Encode(message)
	if err != nil {
		log.Error("Failed to encode message: %v", err)
		return
	}
	for id, conn := range sm.connections {
		if id == excludeID {
			continue
		}
		sm.send(conn, payload)
	}
}

// send is fire-and-forget: closed connections are skipped and failures are
// logged, never retried.
func (sm *SessionManager) send(conn Connection, payload []byte) {
	if !conn.IsOpen() {
		log.Trace("Skipping send to closed connection")
		return
	}
	if err := conn.Send(payload); err != nil {
		log.Debug("Failed to send message: %v", err)
	}
}

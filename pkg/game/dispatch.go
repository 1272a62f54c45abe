package game

import (
	"context"

	"github.com/cbodonnell/cloudflight/pkg/game/constants"
	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/messages"
)

// HandleMessage decodes one inbound frame from conn and routes it.
// Malformed frames are logged and dropped; unknown types are ignored.
// Nothing is ever sent back for a bad frame and the connection stays open.
func (sm *SessionManager) HandleMessage(conn Connection, raw []byte) {
	id, ok := sm.playerIDs[conn]
	if !ok {
		log.Debug("Ignoring message from unregistered connection")
		return
	}
	player := sm.gameState.Players[id]

	message, err := messages.DecodeClientMessage(raw)
	if err != nil {
		log.Warn("Dropping malformed message from player %s: %v", id, err)
		sm.metrics.MessageMalformed(context.Background())
		return
	}

	switch message.Type {
	case messages.MessageTypeClientInput:
		sm.metrics.MessageReceived(context.Background(), message.Type)
		input, err := message.DecodeInput()
		if err != nil {
			log.Warn("Dropping malformed input from player %s: %v", id, err)
			sm.metrics.MessageMalformed(context.Background())
			return
		}
		sm.handleInput(player, input)
	case messages.MessageTypeClientRequestNearbyPlayers:
		sm.metrics.MessageReceived(context.Background(), message.Type)
		sm.handleRequestNearbyPlayers(player, conn)
	default:
		log.Debug("Ignoring unknown message type %q from player %s", message.Type, id)
	}
}

// handleInput integrates one fixed step for the sender and relays the result
// to every player in its interest set.
func (sm *SessionManager) handleInput(player *types.Player, input messages.Input) {
	next := sm.flightModel.Step(player.FlightState(), input.Kinematic(), constants.TickDeltaTime)
	player.ApplyFlightState(next, sm.now())
	log.Trace("Player %s at %v", player.ID, player.Position)
	sm.dirty = true

	payload, err := messages.Encode(messages.NewServerPlayerUpdate(player.ID, player.Position, player.Rotation, player.Velocity))
	if err != nil {
		log.Error("Failed to encode player update: %v", err)
		return
	}
	for _, nearby := range Nearby(player, sm.gameState.Players, sm.interestRadius) {
		sm.send(sm.connections[nearby.ID], payload)
	}
}

// handleRequestNearbyPlayers replies to the requester only.
func (sm *SessionManager) handleRequestNearbyPlayers(player *types.Player, conn Connection) {
	nearby := Nearby(player, sm.gameState.Players, sm.interestRadius)
	snapshots := make([]messages.PlayerSnapshot, 0, len(nearby))
	for _, p := range nearby {
		snapshots = append(snapshots, PlayerSnapshotFromPlayer(p))
	}
	sm.sendTo(conn, messages.NewServerNearbyPlayers(snapshots))
}

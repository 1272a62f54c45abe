package messages

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	flightfb "github.com/cbodonnell/cloudflight/flatbuffers/flight"
	gametypes "github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
)

// SerializeSnapshot encodes a game state as a zstd-compressed flatbuffer.
// It is the blob format of the flight recorder.
func SerializeSnapshot(state *gametypes.GameState) ([]byte, error) {
	b, err := SerializeSnapshotFlatbuffer(state)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %v", err)
	}

	compressed := bytes.NewBuffer(nil)
	compWriter, err := zstd.NewWriter(compressed, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if _, err := compWriter.Write(b); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %v", err)
	}
	if err := compWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %v", err)
	}

	return compressed.Bytes(), nil
}

// DeserializeSnapshot decodes a blob produced by SerializeSnapshot.
func DeserializeSnapshot(data []byte) (*gametypes.GameState, error) {
	compReader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer compReader.Close()
	b, err := io.ReadAll(compReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed snapshot: %v", err)
	}

	state, err := DeserializeSnapshotFlatbuffer(b)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %v", err)
	}

	return state, nil
}

func SerializeSnapshotFlatbuffer(state *gametypes.GameState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("game state is nil")
	}

	// sorted so equal states encode to equal bytes
	ids := make([]string, 0, len(state.Players))
	for id := range state.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	builder := flatbuffers.NewBuilder(0)
	playerStates := make([]flatbuffers.UOffsetT, 0, len(ids))
	for _, id := range ids {
		playerStates = append(playerStates, SerializePlayerStateFlatbuffer(builder, state.Players[id]))
	}

	flightfb.SnapshotStartPlayersVector(builder, len(playerStates))
	for i := len(playerStates) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(playerStates[i])
	}
	players := builder.EndVector(len(playerStates))

	flightfb.SnapshotStart(builder)
	flightfb.SnapshotAddTimestamp(builder, state.Timestamp)
	flightfb.SnapshotAddPlayers(builder, players)
	snapshot := flightfb.SnapshotEnd(builder)
	flightfb.FinishSnapshotBuffer(builder, snapshot)

	return builder.FinishedBytes(), nil
}

func SerializePlayerStateFlatbuffer(builder *flatbuffers.Builder, player *gametypes.Player) flatbuffers.UOffsetT {
	id := builder.CreateString(player.ID)

	// structs are written inline, between start and end
	flightfb.PlayerStateStart(builder)
	flightfb.PlayerStateAddId(builder, id)
	flightfb.PlayerStateAddPosition(builder, createVec3(builder, player.Position))
	flightfb.PlayerStateAddRotation(builder, createVec3(builder, player.Rotation))
	flightfb.PlayerStateAddVelocity(builder, createVec3(builder, player.Velocity))
	flightfb.PlayerStateAddLastUpdate(builder, player.LastUpdate.UnixNano())
	return flightfb.PlayerStateEnd(builder)
}

func createVec3(builder *flatbuffers.Builder, v kinematic.Vector) flatbuffers.UOffsetT {
	return flightfb.CreateVec3(builder, v.X, v.Y, v.Z)
}

func DeserializeSnapshotFlatbuffer(b []byte) (state *gametypes.GameState, err error) {
	// the flatbuffers accessors panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			state = nil
			err = fmt.Errorf("corrupt snapshot: %v", r)
		}
	}()

	if len(b) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("snapshot too short: %d bytes", len(b))
	}

	snapshot := flightfb.GetRootAsSnapshot(b, 0)
	state = gametypes.NewGameState()
	state.Timestamp = snapshot.Timestamp()
	playerState := &flightfb.PlayerState{}
	for i := 0; i < snapshot.PlayersLength(); i++ {
		if !snapshot.Players(playerState, i) {
			return nil, fmt.Errorf("failed to get player state at index %d", i)
		}
		player := PlayerStateFlatbufferToPlayer(playerState)
		state.Players[player.ID] = player
	}

	return state, nil
}

func PlayerStateFlatbufferToPlayer(fb *flightfb.PlayerState) *gametypes.Player {
	return &gametypes.Player{
		ID:         string(fb.Id()),
		Position:   vec3ToVector(fb.Position(nil)),
		Rotation:   vec3ToVector(fb.Rotation(nil)),
		Velocity:   vec3ToVector(fb.Velocity(nil)),
		LastUpdate: time.Unix(0, fb.LastUpdate()),
	}
}

func vec3ToVector(v *flightfb.Vec3) kinematic.Vector {
	if v == nil {
		return kinematic.Vector{}
	}
	return kinematic.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
}

package game

import (
	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/messages"
)

func PlayerSnapshotFromPlayer(player *types.Player) messages.PlayerSnapshot {
	return messages.PlayerSnapshot{
		ID:       player.ID,
		Position: player.Position,
		Rotation: player.Rotation,
		Velocity: player.Velocity,
	}
}

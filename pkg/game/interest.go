package game

import (
	"sort"

	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
)

// Nearby returns every player other than center whose straight-line distance
// to center is at most radius, sorted by id. It scans the whole table on each
// call; results must not be cached because positions change every input.
func Nearby(center *types.Player, players map[string]*types.Player, radius float64) []*types.Player {
	nearby := make([]*types.Player, 0)
	for id, player := range players {
		if id == center.ID {
			continue
		}
		if kinematic.Distance(center.Position, player.Position) <= radius {
			nearby = append(nearby, player)
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].ID < nearby[j].ID
	})
	return nearby
}

package handlers

import (
	"net/http"
	"sort"

	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/state"
)

// PlayerList is the body of GET /api/players.
type PlayerList struct {
	Timestamp   int64           `json:"timestamp"`
	PlayerCount int             `json:"playerCount"`
	Players     []*types.Player `json:"players"`
}

func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Debug("failed to write health response: %v", err)
		}
	}
}

// HandleListPlayers serves the last published player table, sorted by id.
func HandleListPlayers(stateManager state.StateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		gameState, err := stateManager.Get(r.Context())
		if err != nil {
			log.Error("failed to get game state: %v", err)
			http.Error(w, "Failed to get game state", http.StatusInternalServerError)
			return
		}

		players := make([]*types.Player, 0, len(gameState.Players))
		for _, player := range gameState.Players {
			players = append(players, player)
		}
		sort.Slice(players, func(i, j int) bool {
			return players[i].ID < players[j].ID
		})

		writeJSON(w, PlayerList{
			Timestamp:   gameState.Timestamp,
			PlayerCount: len(players),
			Players:     players,
		})
	}
}

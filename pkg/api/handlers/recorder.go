package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/messages"
	"github.com/cbodonnell/cloudflight/pkg/repositories"
)

// RecordedSnapshot is the body of GET /api/recorder/snapshots/latest.
type RecordedSnapshot struct {
	ID          int64           `json:"id"`
	Timestamp   int64           `json:"timestamp"`
	PlayerCount int             `json:"playerCount"`
	Players     []*types.Player `json:"players"`
}

// HandleListSessionEvents serves the most recent joins and leaves, newest first.
// The optional limit query parameter caps the result.
func HandleListSessionEvents(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		events, err := repository.ListSessionEvents(r.Context(), limit)
		if err != nil {
			log.Error("failed to list session events: %v", err)
			http.Error(w, "Failed to list session events", http.StatusInternalServerError)
			return
		}

		writeJSON(w, events)
	}
}

// HandleLatestSnapshot decodes and serves the most recent recorded snapshot.
func HandleLatestSnapshot(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		snapshot, err := repository.LoadLatestSnapshot(r.Context())
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "No snapshot recorded", http.StatusNotFound)
				return
			}
			log.Error("failed to load latest snapshot: %v", err)
			http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
			return
		}

		gameState, err := messages.DeserializeSnapshot(snapshot.Data)
		if err != nil {
			log.Error("failed to decode snapshot %d: %v", snapshot.ID, err)
			http.Error(w, "Failed to decode snapshot", http.StatusInternalServerError)
			return
		}

		players := make([]*types.Player, 0, len(gameState.Players))
		for _, player := range gameState.Players {
			players = append(players, player)
		}
		sort.Slice(players, func(i, j int) bool {
			return players[i].ID < players[j].ID
		})

		writeJSON(w, RecordedSnapshot{
			ID:          snapshot.ID,
			Timestamp:   snapshot.Timestamp,
			PlayerCount: snapshot.PlayerCount,
			Players:     players,
		})
	}
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

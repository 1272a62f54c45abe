package types

type GameState struct {
	// Timestamp is the unix millisecond time at which the state was published
	Timestamp int64
	// Players maps player IDs to players
	Players map[string]*Player
}

func NewGameState() *GameState {
	return &GameState{
		Timestamp: 0,
		Players:   make(map[string]*Player),
	}
}

// Copy returns a deep copy of the game state
func (g *GameState) Copy() *GameState {
	newGameState := &GameState{
		Timestamp: g.Timestamp,
		Players:   make(map[string]*Player, len(g.Players)),
	}
	for id, player := range g.Players {
		newGameState.Players[id] = player.Copy()
	}
	return newGameState
}

func (g *GameState) SetTimestamp(timestamp int64) {
	g.Timestamp = timestamp
}

func (g *GameState) AddPlayer(player *Player) {
	g.Players[player.ID] = player
}

func (g *GameState) RemovePlayer(id string) {
	delete(g.Players, id)
}

func (g *GameState) PlayerCount() int {
	return len(g.Players)
}

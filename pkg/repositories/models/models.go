package models

// Snapshot is one recorded copy of the player table.
// Data is the compressed flatbuffer produced by messages.SerializeSnapshot.
type Snapshot struct {
	ID          int64  `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	PlayerCount int    `json:"player_count"`
	Data        []byte `json:"-"`
}

type SessionEvent struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	PlayerID    string `json:"player_id"`
	PlayerCount int    `json:"player_count"`
	Timestamp   int64  `json:"timestamp"`
}

package types

import "time"

type SessionEventKind string

const (
	SessionEventJoin  SessionEventKind = "join"
	SessionEventLeave SessionEventKind = "leave"
)

// SessionEvent records a player joining or leaving, with the player count
// right after the table changed.
type SessionEvent struct {
	Kind        SessionEventKind
	PlayerID    string
	PlayerCount int
	Timestamp   time.Time
}

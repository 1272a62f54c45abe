package types

import (
	"time"

	"github.com/cbodonnell/cloudflight/pkg/kinematic"
)

// Player is the server-side record of one connected pilot.
// The transport handle is held by the session manager, not by the player.
type Player struct {
	ID         string           `json:"id"`
	Position   kinematic.Vector `json:"position"`
	Rotation   kinematic.Vector `json:"rotation"`
	Velocity   kinematic.Vector `json:"velocity"`
	LastUpdate time.Time        `json:"lastUpdate"`
}

// NewPlayer creates a player at the given spawn with level attitude and no velocity.
func NewPlayer(id string, spawn kinematic.Vector) *Player {
	return &Player{
		ID:         id,
		Position:   spawn,
		LastUpdate: time.Now(),
	}
}

// Copy returns a copy of the player
func (p *Player) Copy() *Player {
	return &Player{
		ID:         p.ID,
		Position:   p.Position,
		Rotation:   p.Rotation,
		Velocity:   p.Velocity,
		LastUpdate: p.LastUpdate,
	}
}

// FlightState returns the kinematic part of the player
func (p *Player) FlightState() kinematic.FlightState {
	return kinematic.FlightState{
		Position: p.Position,
		Rotation: p.Rotation,
		Velocity: p.Velocity,
	}
}

// ApplyFlightState stores the result of an integration step
func (p *Player) ApplyFlightState(state kinematic.FlightState, now time.Time) {
	p.Position = state.Position
	p.Rotation = state.Rotation
	p.Velocity = state.Velocity
	p.LastUpdate = now
}

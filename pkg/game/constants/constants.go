package constants

import (
	"math"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/kinematic"
)

const (
	// TickDeltaTime is the fixed timestep applied to every input message
	TickDeltaTime float64 = 1.0 / 60.0

	// RotationRate is the angular rate in rad/s at full stick deflection
	RotationRate float64 = 2.0
	// CruiseSpeed is the airspeed in m/s at full throttle
	CruiseSpeed float64 = 100.0
	// VerticalSpeed is the rate in m/s of direct climb/descend control
	VerticalSpeed float64 = 20.0
	// SoftGravity is the sink rate in m/s of an idle aircraft
	SoftGravity float64 = 5.0

	// MinAltitude is the floor of the world in metres
	MinAltitude float64 = 10.0
	// MaxAltitude is the ceiling of the world in metres
	MaxAltitude float64 = 15000.0
	// MaxPitch keeps the nose from going through vertical
	MaxPitch float64 = math.Pi / 2
	// MaxRoll keeps the wings from banking past 45 degrees
	MaxRoll float64 = math.Pi / 4

	// InterestRadius is the distance in metres within which player updates are relayed
	InterestRadius float64 = 50000.0

	// PingInterval is how often each connection is probed for liveness
	PingInterval = 30 * time.Second

	// PlayerIDPrefix prefixes every generated player id
	PlayerIDPrefix = "pilot_"
)

// SpawnPosition is where every new player appears
var SpawnPosition = kinematic.Vector{X: 0, Y: 1000, Z: 0}

// FlightModel returns the flight model shared by the server and the client predictor.
func FlightModel() kinematic.FlightModel {
	return kinematic.FlightModel{
		RotationRate:  RotationRate,
		CruiseSpeed:   CruiseSpeed,
		VerticalSpeed: VerticalSpeed,
		SoftGravity:   SoftGravity,
		MaxPitch:      MaxPitch,
		MaxRoll:       MaxRoll,
		MinAltitude:   MinAltitude,
		MaxAltitude:   MaxAltitude,
	}
}

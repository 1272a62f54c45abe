package kinematic

import "math"

// Input is one frame of pilot controls.
// Pitch, Yaw and Roll are rate multipliers in [-1, 1], Throttle is in [0, 1]
// and VerticalInput is -1 (descend), 0 or 1 (climb).
type Input struct {
	Pitch         float64
	Yaw           float64
	Roll          float64
	Throttle      float64
	VerticalInput float64
}

// Normalized returns a copy of the input with every field clamped to its range.
// NaN values are treated as zero.
func (in Input) Normalized() Input {
	return Input{
		Pitch:         Clamp(finite(in.Pitch), -1, 1),
		Yaw:           Clamp(finite(in.Yaw), -1, 1),
		Roll:          Clamp(finite(in.Roll), -1, 1),
		Throttle:      Clamp(finite(in.Throttle), 0, 1),
		VerticalInput: sign(finite(in.VerticalInput)),
	}
}

// FlightState is the kinematic state of one aircraft.
type FlightState struct {
	Position Vector
	Rotation Vector
	Velocity Vector
}

// FlightModel holds the constants of the simplified flight model.
type FlightModel struct {
	// RotationRate is the angular rate in rad/s at full stick deflection.
	RotationRate float64
	// CruiseSpeed is the airspeed in m/s at full throttle.
	CruiseSpeed float64
	// VerticalSpeed is the climb/descend rate in m/s of the direct altitude control.
	VerticalSpeed float64
	// SoftGravity is the sink rate in m/s applied to idle aircraft.
	SoftGravity float64
	MaxPitch    float64
	MaxRoll     float64
	MinAltitude float64
	MaxAltitude float64
}

// Step integrates one fixed timestep of the flight model.
// Velocity is re-derived from orientation and throttle on every step; nothing
// carries over from the previous velocity.
func (m FlightModel) Step(state FlightState, in Input, dt float64) FlightState {
	in = in.Normalized()

	rot := state.Rotation
	rot.X += in.Pitch * m.RotationRate * dt
	rot.Y += in.Yaw * m.RotationRate * dt
	rot.Z += in.Roll * m.RotationRate * dt

	rot.X = Clamp(rot.X, -m.MaxPitch, m.MaxPitch)
	rot.Z = Clamp(rot.Z, -m.MaxRoll, m.MaxRoll)

	vel := Forward(rot).Scale(m.CruiseSpeed * in.Throttle)
	if in.VerticalInput != 0 {
		vel.Y += in.VerticalInput * m.VerticalSpeed
	} else if in.Throttle == 0 {
		vel.Y -= m.SoftGravity
	}

	pos := state.Position.Add(vel.Scale(dt))
	pos.Y = Clamp(pos.Y, m.MinAltitude, m.MaxAltitude)

	return FlightState{
		Position: pos,
		Rotation: rot,
		Velocity: vel,
	}
}

// Forward returns the unit vector the nose points along for the given rotation.
// Positive pitch points the nose down.
func Forward(rotation Vector) Vector {
	pitch, yaw := rotation.X, rotation.Y
	return Vector{
		X: math.Sin(yaw) * math.Cos(pitch),
		Y: -math.Sin(pitch),
		Z: math.Cos(yaw) * math.Cos(pitch),
	}
}

// Heading returns the compass heading in degrees, in [0, 360).
func Heading(rotation Vector) float64 {
	deg := math.Mod(rotation.Y*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Airspeed returns the magnitude of the velocity.
func Airspeed(velocity Vector) float64 {
	return velocity.Length()
}

func finite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

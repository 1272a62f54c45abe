package prediction

import (
	"sync"

	"github.com/cbodonnell/cloudflight/pkg/game/constants"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
)

// TerrainFunc returns the ground elevation at (x, z).
type TerrainFunc func(x, z float64) float64

// Predictor runs the flight model locally each frame so the pilot sees an
// immediate response to input. It uses the same model and timestep as the
// server; the server never sees the predicted state.
type Predictor struct {
	lock    sync.RWMutex
	model   kinematic.FlightModel
	terrain TerrainFunc
	state   kinematic.FlightState
}

type NewPredictorOptions struct {
	// FlightModel defaults to constants.FlightModel().
	FlightModel *kinematic.FlightModel
	// Terrain is optional. When set the predicted altitude never drops below
	// terrain elevation plus the model's minimum altitude.
	Terrain TerrainFunc
}

func NewPredictor(opts NewPredictorOptions) *Predictor {
	model := constants.FlightModel()
	if opts.FlightModel != nil {
		model = *opts.FlightModel
	}
	return &Predictor{
		model:   model,
		terrain: opts.Terrain,
		state: kinematic.FlightState{
			Position: constants.SpawnPosition,
		},
	}
}

// Step advances the local state by dt seconds and returns it.
func (p *Predictor) Step(in kinematic.Input, dt float64) kinematic.FlightState {
	p.lock.Lock()
	defer p.lock.Unlock()

	next := p.model.Step(p.state, in, dt)
	if p.terrain != nil {
		floor := p.terrain(next.Position.X, next.Position.Z) + p.model.MinAltitude
		if next.Position.Y < floor {
			next.Position.Y = floor
		}
	}
	p.state = next
	return next
}

// Reconcile adopts the position assigned by the server in init.
// Rotation and velocity reset to rest.
func (p *Predictor) Reconcile(position kinematic.Vector) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.state = kinematic.FlightState{Position: position}
}

func (p *Predictor) State() kinematic.FlightState {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.state
}

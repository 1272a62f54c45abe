package remote

import (
	"sort"
	"sync"

	"github.com/cbodonnell/cloudflight/pkg/kinematic"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/messages"
)

// SmoothingFactor is the fraction of the remaining distance to its target a
// remote player covers each frame.
const SmoothingFactor = 0.2

// RadarRange is the horizontal distance in meters within which other
// players show up on the radar.
const RadarRange = 25000.0

// Proxy is the displayed state of another player. Position and Rotation move
// toward the targets received from the server; they are never snapped.
type Proxy struct {
	ID             string
	Position       kinematic.Vector
	Rotation       kinematic.Vector
	TargetPosition kinematic.Vector
	TargetRotation kinematic.Vector
	TargetVelocity kinematic.Vector
}

func newProxy(id string, position, rotation kinematic.Vector) *Proxy {
	return &Proxy{
		ID:             id,
		Position:       position,
		Rotation:       rotation,
		TargetPosition: position,
		TargetRotation: rotation,
	}
}

func (p *Proxy) smooth(factor float64) {
	p.Position = kinematic.Lerp(p.Position, p.TargetPosition, factor)
	p.Rotation = kinematic.Lerp(p.Rotation, p.TargetRotation, factor)
}

// Registry tracks every remote player this client knows about.
// It is safe for concurrent use by a network goroutine and a render loop.
type Registry struct {
	lock        sync.RWMutex
	selfID      string
	playerCount int
	proxies     map[string]*Proxy
	factor      float64
}

func NewRegistry() *Registry {
	return &Registry{
		proxies: make(map[string]*Proxy),
		factor:  SmoothingFactor,
	}
}

// Apply folds one server message into the registry. Messages about the local
// player are ignored, as are updates for players this client has not seen
// joining; the next nearbyPlayers reply catches those up.
func (r *Registry) Apply(msg *messages.ServerMessage) {
	r.lock.Lock()
	defer r.lock.Unlock()

	switch msg.Type {
	case messages.MessageTypeServerInit:
		r.selfID = msg.PlayerID
		r.playerCount = msg.PlayerCount
		delete(r.proxies, msg.PlayerID)
	case messages.MessageTypeServerPlayerJoined:
		r.playerCount = msg.PlayerCount
		r.add(msg.PlayerID, msg.Position, msg.Rotation)
	case messages.MessageTypeServerPlayerLeft:
		r.playerCount = msg.PlayerCount
		delete(r.proxies, msg.PlayerID)
	case messages.MessageTypeServerPlayerUpdate:
		proxy, ok := r.proxies[msg.PlayerID]
		if !ok {
			return
		}
		proxy.TargetPosition = msg.Position
		proxy.TargetRotation = msg.Rotation
		proxy.TargetVelocity = msg.Velocity
	case messages.MessageTypeServerNearbyPlayers:
		for _, player := range msg.Players {
			if proxy, ok := r.proxies[player.ID]; ok {
				proxy.TargetPosition = player.Position
				proxy.TargetRotation = player.Rotation
				proxy.TargetVelocity = player.Velocity
				continue
			}
			r.add(player.ID, player.Position, player.Rotation)
		}
	default:
		log.Debug("Ignoring server message of type %s", msg.Type)
	}
}

func (r *Registry) add(id string, position, rotation kinematic.Vector) {
	if id == "" || id == r.selfID {
		return
	}
	if _, ok := r.proxies[id]; ok {
		return
	}
	r.proxies[id] = newProxy(id, position, rotation)
}

// Smooth advances every proxy one frame toward its target.
func (r *Registry) Smooth() {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, proxy := range r.proxies {
		proxy.smooth(r.factor)
	}
}

// SelfID returns the id assigned by the server, or "" before init.
func (r *Registry) SelfID() string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.selfID
}

// PlayerCount returns the server-wide count carried by the last lifecycle message.
func (r *Registry) PlayerCount() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.playerCount
}

// Get returns a copy of the proxy for id.
func (r *Registry) Get(id string) (Proxy, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	proxy, ok := r.proxies[id]
	if !ok {
		return Proxy{}, false
	}
	return *proxy, true
}

// Proxies returns copies of all proxies sorted by id.
func (r *Registry) Proxies() []Proxy {
	r.lock.RLock()
	defer r.lock.RUnlock()

	proxies := make([]Proxy, 0, len(r.proxies))
	for _, proxy := range r.proxies {
		proxies = append(proxies, *proxy)
	}
	sort.Slice(proxies, func(i, j int) bool {
		return proxies[i].ID < proxies[j].ID
	})
	return proxies
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.proxies)
}

// InRange counts proxies whose displayed position lies within radius of
// center on the horizontal plane. Altitude is ignored.
func (r *Registry) InRange(center kinematic.Vector, radius float64) int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	flat := kinematic.Vector{X: center.X, Z: center.Z}
	count := 0
	for _, proxy := range r.proxies {
		if kinematic.Distance(flat, kinematic.Vector{X: proxy.Position.X, Z: proxy.Position.Z}) <= radius {
			count++
		}
	}
	return count
}

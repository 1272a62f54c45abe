package messages

import (
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/cloudflight/pkg/kinematic"
)

// Message types
const (
	MessageTypeClientInput                = "input"
	MessageTypeClientRequestNearbyPlayers = "requestNearbyPlayers"

	MessageTypeServerInit          = "init"
	MessageTypeServerPlayerJoined  = "playerJoined"
	MessageTypeServerPlayerLeft    = "playerLeft"
	MessageTypeServerPlayerUpdate  = "playerUpdate"
	MessageTypeServerNearbyPlayers = "nearbyPlayers"
)

// ClientMessage is the envelope of every frame a client sends.
// Input is only set for MessageTypeClientInput.
type ClientMessage struct {
	Type  string          `json:"type"`
	Input json.RawMessage `json:"input,omitempty"`
}

// DecodeClientMessage parses the envelope of an inbound frame.
func DecodeClientMessage(raw []byte) (*ClientMessage, error) {
	message := &ClientMessage{}
	if err := json.Unmarshal(raw, message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %v", err)
	}
	return message, nil
}

// DecodeInput parses the control vector carried by an input message.
func (m *ClientMessage) DecodeInput() (Input, error) {
	var input Input
	if len(m.Input) == 0 || string(m.Input) == "null" {
		return input, fmt.Errorf("input message has no input payload")
	}
	if err := json.Unmarshal(m.Input, &input); err != nil {
		return input, fmt.Errorf("failed to unmarshal input: %v", err)
	}
	return input, nil
}

// Input is the control vector sampled by a client each frame.
// It accepts the control-surface aliases elevator, rudder and aileron for
// pitch, yaw and roll. The primary name wins when both are present.
type Input struct {
	Pitch         float64 `json:"pitch"`
	Yaw           float64 `json:"yaw"`
	Roll          float64 `json:"roll"`
	Throttle      float64 `json:"throttle"`
	VerticalInput float64 `json:"verticalInput"`
}

func (in *Input) UnmarshalJSON(data []byte) error {
	var raw struct {
		Pitch         *float64 `json:"pitch"`
		Elevator      *float64 `json:"elevator"`
		Yaw           *float64 `json:"yaw"`
		Rudder        *float64 `json:"rudder"`
		Roll          *float64 `json:"roll"`
		Aileron       *float64 `json:"aileron"`
		Throttle      float64  `json:"throttle"`
		VerticalInput float64  `json:"verticalInput"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input{
		Pitch:         firstOf(raw.Pitch, raw.Elevator),
		Yaw:           firstOf(raw.Yaw, raw.Rudder),
		Roll:          firstOf(raw.Roll, raw.Aileron),
		Throttle:      raw.Throttle,
		VerticalInput: raw.VerticalInput,
	}
	return nil
}

func firstOf(primary, alias *float64) float64 {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return 0
}

// Kinematic converts the wire input into the integrator's input.
func (in Input) Kinematic() kinematic.Input {
	return kinematic.Input{
		Pitch:         in.Pitch,
		Yaw:           in.Yaw,
		Roll:          in.Roll,
		Throttle:      in.Throttle,
		VerticalInput: in.VerticalInput,
	}
}

// ClientInput is sent by a client every frame.
type ClientInput struct {
	Type  string `json:"type"`
	Input Input  `json:"input"`
}

func NewClientInput(in Input) *ClientInput {
	return &ClientInput{Type: MessageTypeClientInput, Input: in}
}

// ClientRequestNearbyPlayers asks the server for everyone in range.
type ClientRequestNearbyPlayers struct {
	Type string `json:"type"`
}

func NewClientRequestNearbyPlayers() *ClientRequestNearbyPlayers {
	return &ClientRequestNearbyPlayers{Type: MessageTypeClientRequestNearbyPlayers}
}

// ServerInit is sent to a player right after it connects.
type ServerInit struct {
	Type        string           `json:"type"`
	PlayerID    string           `json:"playerId"`
	Position    kinematic.Vector `json:"position"`
	PlayerCount int              `json:"playerCount"`
}

func NewServerInit(playerID string, position kinematic.Vector, playerCount int) *ServerInit {
	return &ServerInit{
		Type:        MessageTypeServerInit,
		PlayerID:    playerID,
		Position:    position,
		PlayerCount: playerCount,
	}
}

// ServerPlayerJoined is sent to every other player when someone connects.
type ServerPlayerJoined struct {
	Type        string           `json:"type"`
	PlayerID    string           `json:"playerId"`
	Position    kinematic.Vector `json:"position"`
	Rotation    kinematic.Vector `json:"rotation"`
	PlayerCount int              `json:"playerCount"`
}

func NewServerPlayerJoined(playerID string, position, rotation kinematic.Vector, playerCount int) *ServerPlayerJoined {
	return &ServerPlayerJoined{
		Type:        MessageTypeServerPlayerJoined,
		PlayerID:    playerID,
		Position:    position,
		Rotation:    rotation,
		PlayerCount: playerCount,
	}
}

// ServerPlayerLeft is sent to the remaining players when someone disconnects.
type ServerPlayerLeft struct {
	Type        string `json:"type"`
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

func NewServerPlayerLeft(playerID string, playerCount int) *ServerPlayerLeft {
	return &ServerPlayerLeft{
		Type:        MessageTypeServerPlayerLeft,
		PlayerID:    playerID,
		PlayerCount: playerCount,
	}
}

// ServerPlayerUpdate carries a player's state after an integration step.
type ServerPlayerUpdate struct {
	Type     string           `json:"type"`
	PlayerID string           `json:"playerId"`
	Position kinematic.Vector `json:"position"`
	Rotation kinematic.Vector `json:"rotation"`
	Velocity kinematic.Vector `json:"velocity"`
}

func NewServerPlayerUpdate(playerID string, position, rotation, velocity kinematic.Vector) *ServerPlayerUpdate {
	return &ServerPlayerUpdate{
		Type:     MessageTypeServerPlayerUpdate,
		PlayerID: playerID,
		Position: position,
		Rotation: rotation,
		Velocity: velocity,
	}
}

// PlayerSnapshot is one entry of a nearby players reply.
type PlayerSnapshot struct {
	ID       string           `json:"id"`
	Position kinematic.Vector `json:"position"`
	Rotation kinematic.Vector `json:"rotation"`
	Velocity kinematic.Vector `json:"velocity"`
}

// ServerNearbyPlayers answers a nearby players request.
type ServerNearbyPlayers struct {
	Type    string           `json:"type"`
	Players []PlayerSnapshot `json:"players"`
}

func NewServerNearbyPlayers(players []PlayerSnapshot) *ServerNearbyPlayers {
	if players == nil {
		players = []PlayerSnapshot{}
	}
	return &ServerNearbyPlayers{
		Type:    MessageTypeServerNearbyPlayers,
		Players: players,
	}
}

// ServerMessage is the union of every server message, used by clients to
// decode inbound frames in one pass.
type ServerMessage struct {
	Type        string           `json:"type"`
	PlayerID    string           `json:"playerId,omitempty"`
	Position    kinematic.Vector `json:"position"`
	Rotation    kinematic.Vector `json:"rotation"`
	Velocity    kinematic.Vector `json:"velocity"`
	PlayerCount int              `json:"playerCount"`
	Players     []PlayerSnapshot `json:"players,omitempty"`
}

// DecodeServerMessage parses a frame received from the server.
func DecodeServerMessage(raw []byte) (*ServerMessage, error) {
	message := &ServerMessage{}
	if err := json.Unmarshal(raw, message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server message: %v", err)
	}
	return message, nil
}

// Encode marshals any message into a text frame.
func Encode(message interface{}) ([]byte, error) {
	b, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %v", err)
	}
	return b, nil
}

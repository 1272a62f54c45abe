package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/client/prediction"
	"github.com/cbodonnell/cloudflight/pkg/client/remote"
	"github.com/cbodonnell/cloudflight/pkg/game/constants"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/messages"
	"nhooyr.io/websocket"
)

const (
	DefaultServerURL = "ws://localhost:8080/ws"
	// DefaultNearbyInterval is how often the client asks for a full catch-up
	DefaultNearbyInterval = 5 * time.Second
	// ReadLimit is the largest server frame the client accepts
	ReadLimit = 1 << 20
)

// InputSource samples the pilot's controls for a frame.
type InputSource func(frame int) kinematic.Input

// FrameFunc observes the local state after each frame.
type FrameFunc func(frame int, state kinematic.FlightState)

// Client is a headless flight client. It owns one websocket connection, a
// registry of remote players and a local predictor.
type Client struct {
	conn           *websocket.Conn
	registry       *remote.Registry
	predictor      *prediction.Predictor
	nearbyInterval time.Duration
	frameInterval  time.Duration

	initialized chan struct{}
	initOnce    sync.Once
}

type DialOptions struct {
	// Registry defaults to a new registry.
	Registry *remote.Registry
	// Predictor defaults to a predictor without terrain.
	Predictor      *prediction.Predictor
	NearbyInterval time.Duration
	// FrameInterval defaults to the server tick, 60 frames per second.
	FrameInterval time.Duration
}

// Dial connects to the server at url.
// The caller is responsible for calling Close() on the client.
func Dial(ctx context.Context, url string, opts DialOptions) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial server: %v", err)
	}
	conn.SetReadLimit(ReadLimit)

	registry := opts.Registry
	if registry == nil {
		registry = remote.NewRegistry()
	}
	predictor := opts.Predictor
	if predictor == nil {
		predictor = prediction.NewPredictor(prediction.NewPredictorOptions{})
	}
	nearbyInterval := opts.NearbyInterval
	if nearbyInterval <= 0 {
		nearbyInterval = DefaultNearbyInterval
	}
	frameInterval := opts.FrameInterval
	if frameInterval <= 0 {
		tickDelta := constants.TickDeltaTime
		frameInterval = time.Duration(tickDelta * float64(time.Second))
	}

	return &Client{
		conn:           conn,
		registry:       registry,
		predictor:      predictor,
		nearbyInterval: nearbyInterval,
		frameInterval:  frameInterval,
		initialized:    make(chan struct{}),
	}, nil
}

func (c *Client) Registry() *remote.Registry {
	return c.registry
}

func (c *Client) Predictor() *prediction.Predictor {
	return c.predictor
}

// Initialized is closed once the server's init message has been applied.
func (c *Client) Initialized() <-chan struct{} {
	return c.initialized
}

// HandleMessages reads server frames until the connection fails and applies
// them to the registry. The returned error is terminal; the client does not
// reconnect.
func (c *Client) HandleMessages(ctx context.Context) error {
	for {
		_, b, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("connection lost: %v", err)
		}

		msg, err := messages.DecodeServerMessage(b)
		if err != nil {
			log.Warn("Dropping malformed server message: %v", err)
			continue
		}
		log.Trace("Received %s message", msg.Type)

		c.registry.Apply(msg)
		if msg.Type == messages.MessageTypeServerInit {
			c.predictor.Reconcile(msg.Position)
			c.initOnce.Do(func() { close(c.initialized) })
			log.Info("Joined as %s with %d players online", msg.PlayerID, msg.PlayerCount)
		}
	}
}

func (c *Client) SendInput(ctx context.Context, in kinematic.Input) error {
	return c.send(ctx, messages.NewClientInput(messages.Input{
		Pitch:         in.Pitch,
		Yaw:           in.Yaw,
		Roll:          in.Roll,
		Throttle:      in.Throttle,
		VerticalInput: in.VerticalInput,
	}))
}

func (c *Client) RequestNearbyPlayers(ctx context.Context) error {
	return c.send(ctx, messages.NewClientRequestNearbyPlayers())
}

func (c *Client) send(ctx context.Context, message interface{}) error {
	b, err := messages.Encode(message)
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("failed to write message: %v", err)
	}
	return nil
}

// Fly runs the frame loop until ctx is done: sample input, predict locally,
// forward the input, then smooth remote players. It waits for init before
// the first frame and asks for nearby players on join and periodically.
func (c *Client) Fly(ctx context.Context, source InputSource, onFrame FrameFunc) error {
	select {
	case <-ctx.Done():
		return nil
	case <-c.initialized:
	}

	if err := c.RequestNearbyPlayers(ctx); err != nil {
		return err
	}

	frames := time.NewTicker(c.frameInterval)
	defer frames.Stop()
	nearby := time.NewTicker(c.nearbyInterval)
	defer nearby.Stop()

	for frame := 0; ; {
		select {
		case <-ctx.Done():
			return nil
		case <-nearby.C:
			if err := c.RequestNearbyPlayers(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case <-frames.C:
			in := source(frame)
			state := c.predictor.Step(in, constants.TickDeltaTime)
			if err := c.SendInput(ctx, in); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			c.registry.Smooth()
			if onFrame != nil {
				onFrame(frame, state)
			}
			frame++
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

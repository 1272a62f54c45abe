package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/metrics"
	"github.com/cbodonnell/cloudflight/pkg/queue"
	"nhooyr.io/websocket"
)

const (
	// WriteTimeout bounds a single frame write
	WriteTimeout = 5 * time.Second
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection is closed")

// WSConnection is a server-side WebSocket connection. Outbound frames are
// buffered in a bounded queue and written by a dedicated goroutine, so Send
// never blocks the session loop. Inbound frames are buffered the same way
// and handed to the session by a dispatcher, so the reader keeps consuming
// control frames while the session is busy.
type WSConnection struct {
	conn         *websocket.Conn
	remoteAddr   string
	outbound     *queue.InMemoryQueue
	inbound      *queue.InMemoryQueue
	metrics      *metrics.Metrics
	pingInterval time.Duration
	open         atomic.Bool
	closeOnce    sync.Once
	// stopLoops ends the writer and pinger, stopRead ends the reader.
	stopLoops context.CancelFunc
	stopRead  context.CancelFunc
}

type newWSConnectionOptions struct {
	Conn             *websocket.Conn
	RemoteAddr       string
	SendQueueSize    int
	ReceiveQueueSize int
	PingInterval     time.Duration
	Metrics          *metrics.Metrics
}

func newWSConnection(opts newWSConnectionOptions) *WSConnection {
	c := &WSConnection{
		conn:         opts.Conn,
		remoteAddr:   opts.RemoteAddr,
		outbound:     queue.NewInMemoryQueue(opts.SendQueueSize),
		inbound:      queue.NewInMemoryQueue(opts.ReceiveQueueSize),
		metrics:      opts.Metrics,
		pingInterval: opts.PingInterval,
		stopLoops:    func() {},
		stopRead:     func() {},
	}
	c.open.Store(true)
	return c
}

// Send queues payload for delivery. A full queue drops the frame.
func (c *WSConnection) Send(payload []byte) error {
	if !c.IsOpen() {
		return ErrConnectionClosed
	}
	if err := c.outbound.Enqueue(payload); err != nil {
		c.metrics.FrameDropped(context.Background())
		return fmt.Errorf("failed to queue frame for %s: %v", c.remoteAddr, err)
	}
	return nil
}

func (c *WSConnection) IsOpen() bool {
	return c.open.Load()
}

// Close marks the connection closed and starts the close handshake in the
// background; it returns immediately.
func (c *WSConnection) Close() error {
	c.shutdown(websocket.StatusGoingAway, "server closing connection")
	return nil
}

func (c *WSConnection) RemoteAddr() string {
	return c.remoteAddr
}

// shutdown performs the close handshake. The reader must stay live until
// Close returns, otherwise the peer's close frame is never consumed and the
// transport is torn down before our status code reaches the peer.
func (c *WSConnection) shutdown(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		c.stopLoops()
		go func() {
			if err := c.conn.Close(code, reason); err != nil {
				log.Trace("Close handshake with %s: %v", c.remoteAddr, err)
			}
			c.stopRead()
		}()
	})
}

// abort drops the transport without a handshake. Used for peers that stopped
// answering, which would never complete one.
func (c *WSConnection) abort() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		c.stopLoops()
		if err := c.conn.CloseNow(); err != nil {
			log.Trace("Dropping %s: %v", c.remoteAddr, err)
		}
		c.stopRead()
	})
}

// serve runs the connection until the peer goes away. It registers the
// connection with the session queue first and unregisters it last, so the
// session sees connect, messages and disconnect in order.
func (c *WSConnection) serve(ctx context.Context, sessions SessionQueue) {
	readCtx, stopRead := context.WithCancel(ctx)
	defer stopRead()
	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()
	c.stopRead = stopRead
	c.stopLoops = stopLoops

	if err := sessions.QueueConnect(c); err != nil {
		log.Warn("Rejecting connection from %s: %v", c.remoteAddr, err)
		c.shutdown(websocket.StatusTryAgainLater, "server unavailable")
		return
	}

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		c.dispatchLoop(dispatchCtx, sessions)
	}()
	go c.writeLoop(loopCtx)
	go c.pingLoop(loopCtx)
	c.readLoop(readCtx)

	// frames still buffered belong to a player that is leaving
	stopDispatch()
	<-dispatched
	c.shutdown(websocket.StatusNormalClosure, "")
	if err := sessions.QueueDisconnect(c); err != nil {
		log.Debug("Failed to queue disconnect for %s: %v", c.remoteAddr, err)
	}
}

// readLoop never blocks on the session. When the inbound buffer is full the
// frame is dropped; inputs are sampled every frame and the next one
// supersedes it.
func (c *WSConnection) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				log.Trace("Connection closed for %s", c.remoteAddr)
			} else {
				log.Debug("Error reading WebSocket message from %s: %v", c.remoteAddr, err)
			}
			return
		}

		if err := c.inbound.Enqueue(data); err != nil {
			c.metrics.MessageDropped(ctx)
			log.Warn("Dropping message from %s: %v", c.remoteAddr, err)
		}
	}
}

// dispatchLoop forwards inbound frames to the session in arrival order.
func (c *WSConnection) dispatchLoop(ctx context.Context, sessions SessionQueue) {
	for {
		item, err := c.inbound.Dequeue(ctx)
		if err != nil {
			return
		}
		data, ok := item.([]byte)
		if !ok {
			log.Error("Unexpected inbound item type %T", item)
			continue
		}
		if err := sessions.QueueMessage(c, data); err != nil {
			log.Debug("Failed to queue message from %s: %v", c.remoteAddr, err)
			c.shutdown(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}

func (c *WSConnection) writeLoop(ctx context.Context) {
	for {
		item, err := c.outbound.Dequeue(ctx)
		if err != nil {
			return
		}
		payload, ok := item.([]byte)
		if !ok {
			log.Error("Unexpected outbound item type %T", item)
			continue
		}

		// not derived from ctx: cancelling a write in flight kills the transport
		writeCtx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
		err = c.conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			log.Debug("Failed to write to %s: %v", c.remoteAddr, err)
			c.shutdown(websocket.StatusInternalError, "write failed")
			return
		}
		c.metrics.FrameSent(ctx)
	}
}

// pingLoop checks the peer is still answering. A ping with no pong within one
// interval drops the transport, which ends the read loop and produces the
// normal disconnect.
func (c *WSConnection) pingLoop(ctx context.Context) {
	if c.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), c.pingInterval)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Info("Ping to %s failed, dropping connection: %v", c.remoteAddr, err)
				c.abort()
				return
			}
			log.Trace("Ping to %s ok", c.remoteAddr)
		}
	}
}

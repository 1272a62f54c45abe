package network

import (
	"net/http"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/game"
	"github.com/cbodonnell/cloudflight/pkg/game/constants"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/metrics"
	"nhooyr.io/websocket"
)

const (
	// DefaultSendQueueSize is the outbound buffer of each connection
	DefaultSendQueueSize = 256
	// DefaultReceiveQueueSize is the inbound buffer of each connection
	DefaultReceiveQueueSize = 256
)

// SessionQueue receives connection lifecycle events. It is implemented by
// *game.SessionManager. QueueMessage may block while the session is busy;
// connections call it from a dispatcher goroutine so the reader keeps
// answering pings in the meantime.
type SessionQueue interface {
	QueueConnect(conn game.Connection) error
	QueueMessage(conn game.Connection, data []byte) error
	QueueDisconnect(conn game.Connection) error
}

// WSHandler upgrades HTTP requests to WebSocket connections, one player each.
type WSHandler struct {
	sessions         SessionQueue
	sendQueueSize    int
	receiveQueueSize int
	pingInterval     time.Duration
	metrics          *metrics.Metrics
}

type NewWSHandlerOptions struct {
	Sessions SessionQueue
	// SendQueueSize defaults to DefaultSendQueueSize.
	SendQueueSize int
	// ReceiveQueueSize defaults to DefaultReceiveQueueSize. Frames arriving
	// while it is full are dropped.
	ReceiveQueueSize int
	// PingInterval defaults to constants.PingInterval; negative disables pings.
	PingInterval time.Duration
	Metrics      *metrics.Metrics
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(opts NewWSHandlerOptions) *WSHandler {
	sendQueueSize := opts.SendQueueSize
	if sendQueueSize <= 0 {
		sendQueueSize = DefaultSendQueueSize
	}
	receiveQueueSize := opts.ReceiveQueueSize
	if receiveQueueSize <= 0 {
		receiveQueueSize = DefaultReceiveQueueSize
	}
	pingInterval := opts.PingInterval
	if pingInterval == 0 {
		pingInterval = constants.PingInterval
	}
	return &WSHandler{
		sessions:         opts.Sessions,
		sendQueueSize:    sendQueueSize,
		receiveQueueSize: receiveQueueSize,
		pingInterval:     pingInterval,
		metrics:          opts.Metrics,
	}
}

// ServeHTTP blocks for the lifetime of the connection.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// browsers connect from any origin
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Error("Failed to upgrade to WebSocket: %v", err)
		return
	}
	log.Debug("New WebSocket connection from %s", r.RemoteAddr)

	c := newWSConnection(newWSConnectionOptions{
		Conn:             conn,
		RemoteAddr:       r.RemoteAddr,
		SendQueueSize:    h.sendQueueSize,
		ReceiveQueueSize: h.receiveQueueSize,
		PingInterval:     h.pingInterval,
		Metrics:          h.metrics,
	})
	c.serve(r.Context(), h.sessions)
}

package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSConnection_SendDropsWhenBacklogged(t *testing.T) {
	c := newWSConnection(newWSConnectionOptions{RemoteAddr: "test", SendQueueSize: 2})
	assert.True(t, c.IsOpen())

	require.NoError(t, c.Send([]byte("1")))
	require.NoError(t, c.Send([]byte("2")))
	assert.Error(t, c.Send([]byte("3")))
	assert.Equal(t, []interface{}{[]byte("1"), []byte("2")}, c.outbound.ReadAllMessages())
}

func TestWSConnection_SendAfterClose(t *testing.T) {
	c := newWSConnection(newWSConnectionOptions{RemoteAddr: "test", SendQueueSize: 2})
	c.open.Store(false)

	assert.ErrorIs(t, c.Send([]byte("late")), ErrConnectionClosed)
	assert.Equal(t, 0, c.outbound.Size())
}

func TestNewWSHandlerDefaults(t *testing.T) {
	h := NewWSHandler(NewWSHandlerOptions{})
	assert.Equal(t, DefaultSendQueueSize, h.sendQueueSize)
	assert.Equal(t, DefaultReceiveQueueSize, h.receiveQueueSize)
	assert.Greater(t, h.pingInterval.Seconds(), 0.0)

	h = NewWSHandler(NewWSHandlerOptions{SendQueueSize: 8, ReceiveQueueSize: 4, PingInterval: -1})
	assert.Equal(t, 8, h.sendQueueSize)
	assert.Equal(t, 4, h.receiveQueueSize)
	assert.Less(t, h.pingInterval.Seconds(), 0.0)
}

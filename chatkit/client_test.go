package chatkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WebsocketURL = "wss://chat.test/ws"
	c := NewClient(cfg)
	defer c.Close()

	assert.Equal(t, StatusInitialized, c.Status().Code)
	assert.Nil(t, c.CurrentIdentity())
	_, ok := c.ConnectionID()
	assert.False(t, ok)

	_, isWS := c.deps.transport.(*wsTransport)
	assert.True(t, isWS, "default transport is the websocket transport")
	assert.Equal(t, "wss://chat.test/ws", c.deps.transport.ConnectEndpoint())
}

func TestSetLoggerNilIgnored(t *testing.T) {
	c := NewClient(DefaultConfig())
	defer c.Close()
	c.SetLogger(nil)
	// Still the noop logger; logging must not panic.
	c.log.Info("still alive", nil)
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(ModeActive)
	h.client.Close()
	flushes := h.log.count("queue.flush")
	h.client.Close()
	assert.Equal(t, flushes, h.log.count("queue.flush"), "second close must be a no-op")
}

func TestCloseReleasesTokenWaiters(t *testing.T) {
	h := newHarness(ModeActive)

	done := make(chan error, 1)
	h.client.ProvideToken(time.Minute, func(_ Token, err error) { done <- err })

	h.client.Close()

	err, ok := wait(done)
	require.True(t, ok, "close must release token waiters")
	assert.True(t, HasCode(err, ErrorMissingToken))
}

// Package ws wraps coder/websocket with per-operation timeouts and
// close-status helpers for the SDK's transport.
package ws

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Conn wraps websocket.Conn with read/write timeouts.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Dial opens a websocket connection to endpoint. handshakeTimeout of 0
// disables the dial deadline.
func Dial(ctx context.Context, endpoint string, handshakeTimeout, readTimeout, writeTimeout time.Duration) (*Conn, error) {
	dialCtx := ctx
	if handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}
	conn, _, err := websocket.Dial(dialCtx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: conn, readTimeout: readTimeout, writeTimeout: writeTimeout}, nil
}

// Read decodes the next JSON frame into v, bounded by the read timeout.
func (c *Conn) Read(ctx context.Context, v any) error {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	return wsjson.Read(ctx, c.ws, v)
}

// Write encodes v as a JSON frame, bounded by the write timeout.
func (c *Conn) Write(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, v)
}

// Close performs the websocket close handshake.
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}

// IsExpectedClose reports whether err is a deliberate shutdown rather than a
// transport failure: a cancelled context, EOF, or a clean close frame.
func IsExpectedClose(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}

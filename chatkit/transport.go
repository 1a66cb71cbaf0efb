package chatkit

import (
	"context"
	"sync"

	"github.com/coder/websocket"

	"github.com/ykatyhoney/chatkit-go/chatkit/internal/ws"
)

// healthCheckFrame is the first frame the server sends after the handshake;
// it carries the connection id the rest of the SDK keys on.
type healthCheckFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
}

const frameHealthCheck = "health.check"

// wsTransport is the default Transport over coder/websocket. It publishes
// every lifecycle change on the status callback; callers never learn the
// outcome of Connect from the call itself.
//
// gen numbers each connect attempt. Disconnect and a newer Connect bump it,
// so a superseded dial goroutine can tell it is stale and must stay off the
// status stream.
type wsTransport struct {
	cfg    Config
	logger Logger

	mu       sync.Mutex
	endpoint string
	conn     *ws.Conn
	cancel   context.CancelFunc
	dialing  bool
	gen      int
	onStatus func(ConnectionStatus)
}

func newWSTransport(cfg Config, logger Logger) *wsTransport {
	return &wsTransport{cfg: cfg, logger: logger, endpoint: cfg.WebsocketURL}
}

func (t *wsTransport) SetConnectEndpoint(endpoint string) {
	t.mu.Lock()
	t.endpoint = endpoint
	t.mu.Unlock()
}

func (t *wsTransport) ConnectEndpoint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endpoint
}

func (t *wsTransport) SetOnStatusChange(fn func(ConnectionStatus)) {
	t.mu.Lock()
	t.onStatus = fn
	t.mu.Unlock()
}

func (t *wsTransport) publish(status ConnectionStatus) {
	t.mu.Lock()
	fn := t.onStatus
	t.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

// Connect dials the configured endpoint and runs the read loop until the
// connection drops. Calling it while a dial or connection is live is a no-op.
func (t *wsTransport) Connect() {
	t.mu.Lock()
	if t.dialing || t.conn != nil {
		t.mu.Unlock()
		return
	}
	t.dialing = true
	t.gen++
	gen := t.gen
	endpoint := t.endpoint
	runCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	t.publish(ConnectionStatus{Code: StatusConnecting})

	go t.dial(runCtx, gen, endpoint)
}

func (t *wsTransport) dial(ctx context.Context, gen int, endpoint string) {
	conn, err := ws.Dial(ctx, endpoint, t.cfg.HandshakeTimeout, t.cfg.ReadTimeout, t.cfg.WriteTimeout)
	if err != nil {
		if !t.settle(gen, nil) {
			return
		}
		t.logger.Warn("websocket dial failed", map[string]any{"error": err.Error()})
		t.publish(StatusDisconnectedBy(SourceServer, err))
		return
	}

	// The server confirms the session with a health-check frame carrying
	// the connection id. Nothing is connected until it arrives.
	var hello healthCheckFrame
	if err := conn.Read(ctx, &hello); err != nil || hello.Type != frameHealthCheck || hello.ConnectionID == "" {
		_ = conn.Close(websocket.StatusProtocolError, "missing health check")
		if !t.settle(gen, nil) {
			return
		}
		t.publish(StatusDisconnectedBy(SourceServer, err))
		return
	}

	if !t.settle(gen, conn) {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
		return
	}
	t.publish(StatusConnectedWith(hello.ConnectionID))

	t.readLoop(ctx, gen, conn)
}

// settle finalizes a dial attempt: clears the dialing flag and installs conn.
// It returns false when the attempt is stale — Disconnect or a newer Connect
// superseded it — in which case the goroutine owns no state and must not
// publish anything.
func (t *wsTransport) settle(gen int, conn *ws.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return false
	}
	t.dialing = false
	t.conn = conn
	return true
}

func (t *wsTransport) readLoop(ctx context.Context, gen int, conn *ws.Conn) {
	for {
		var frame healthCheckFrame
		if err := conn.Read(ctx, &frame); err != nil {
			t.mu.Lock()
			stale := gen != t.gen
			if !stale {
				t.conn = nil
			}
			t.mu.Unlock()
			if stale || ws.IsExpectedClose(ctx, err) {
				return
			}
			t.logger.Warn("websocket read failed", map[string]any{"error": err.Error()})
			t.publish(StatusDisconnectedBy(SourceSystem, err))
			return
		}
	}
}

// Disconnect closes the socket and reports the disconnect on the status
// stream before invoking completion. Best-effort: close errors are dropped.
// Any in-flight dial attempt is invalidated and stays silent.
func (t *wsTransport) Disconnect(source DisconnectSource, completion func()) {
	t.mu.Lock()
	t.gen++
	conn := t.conn
	cancel := t.cancel
	t.conn = nil
	t.cancel = nil
	t.dialing = false
	t.mu.Unlock()

	go func() {
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
		}
		t.publish(StatusDisconnectedBy(source, nil))
		completion()
	}()
}

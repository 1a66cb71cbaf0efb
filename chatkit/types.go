package chatkit

// Identity is the user id + auth token pair representing who the client is.
// Immutable once assigned; replaced wholesale on reload.
type Identity struct {
	UserID string
	Token  Token
}

// Mode controls whether the client may open a live transport connection.
// Fixed at construction.
type Mode int

const (
	// ModeActive allows opening the transport.
	ModeActive Mode = iota

	// ModePassive forbids opening the transport. Waiter and store side
	// effects still run; connect attempts resolve with ErrorNotActiveMode.
	ModePassive
)

// String returns the string representation of a Mode.
func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// Transport is the websocket transport consumed by the coordinator. Connect
// and Disconnect are fire-and-observe: the authoritative outcome arrives on
// the status callback, not as a return value.
type Transport interface {
	// Connect asks the transport to dial the configured endpoint.
	Connect()

	// Disconnect tears the connection down and invokes completion when the
	// socket is closed. Best-effort; it has no failure mode.
	Disconnect(source DisconnectSource, completion func())

	// SetConnectEndpoint installs the endpoint for subsequent connects.
	SetConnectEndpoint(endpoint string)

	// ConnectEndpoint returns the currently installed endpoint, or "".
	ConnectEndpoint() string

	// SetOnStatusChange registers the status stream consumer. At most one
	// consumer; the client facade installs itself at construction.
	SetOnStatusChange(fn func(ConnectionStatus))
}

// RequestQueue is the HTTP request layer. Flushing releases every queued
// request with a not-connected error.
type RequestQueue interface {
	FlushPendingRequests()
}

// SyncManager owns the post-reconnect recovery flow.
type SyncManager interface {
	CancelRecoveryFlow()
}

// Store is the local persistent store, consumed only for identity-change
// wipes.
type Store interface {
	WipeAll(completion func(error))
}

// WorkerFactory owns the background workers rebuilt on identity change.
type WorkerFactory interface {
	CreateWorkers()
	RemoveAllWorkers()
	WorkerCount() int
}

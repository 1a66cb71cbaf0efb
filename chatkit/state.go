package chatkit

import (
	"sync"
	"time"
)

// StatusCode represents the current state of the websocket connection.
type StatusCode int

const (
	// StatusInitialized means no connection has been attempted yet.
	StatusInitialized StatusCode = iota

	// StatusConnecting means the transport is establishing a connection.
	StatusConnecting

	// StatusConnected means the transport is connected and a connection id
	// is known.
	StatusConnected

	// StatusDisconnecting means a disconnect is in progress.
	StatusDisconnecting

	// StatusDisconnected means the transport is not connected.
	StatusDisconnected
)

// String returns the string representation of a StatusCode.
func (s StatusCode) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnecting:
		return "disconnecting"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DisconnectSource describes who initiated a disconnect.
type DisconnectSource int

const (
	// SourceUser means the disconnect was requested through the SDK API.
	SourceUser DisconnectSource = iota

	// SourceServer means the server closed the connection, possibly with
	// an error.
	SourceServer

	// SourceSystem means the platform closed the connection (background,
	// network loss).
	SourceSystem
)

// String returns the string representation of a DisconnectSource.
func (s DisconnectSource) String() string {
	switch s {
	case SourceUser:
		return "user_initiated"
	case SourceServer:
		return "server_initiated"
	case SourceSystem:
		return "system_initiated"
	default:
		return "unknown"
	}
}

// ConnectionStatus is the authoritative connection state. ConnectionID is set
// only when Code is StatusConnected; Source and Err only when Code is
// StatusDisconnected.
type ConnectionStatus struct {
	Code         StatusCode
	ConnectionID string
	Source       DisconnectSource
	Err          error
}

// StatusConnectedWith builds a connected status carrying the connection id.
func StatusConnectedWith(connectionID string) ConnectionStatus {
	return ConnectionStatus{Code: StatusConnected, ConnectionID: connectionID}
}

// StatusDisconnectedBy builds a disconnected status with its source and the
// error that caused it, if any.
func StatusDisconnectedBy(source DisconnectSource, err error) ConnectionStatus {
	return ConnectionStatus{Code: StatusDisconnected, Source: source, Err: err}
}

// connectionState is the single mutable connection/identity state shared by
// the client facade and the coordinator. All mutation funnels through its
// methods; multi-field updates (set connection id AND complete waiters) are
// atomic to observers.
type connectionState struct {
	mu             sync.Mutex
	status         ConnectionStatus
	connectionID   string
	identity       *Identity
	lastConnectErr error

	connIDWaiters *waiterList[string]
}

func newConnectionState() *connectionState {
	return &connectionState{
		status:        ConnectionStatus{Code: StatusInitialized},
		connIDWaiters: newWaiterList[string](),
	}
}

// Status returns the current connection status.
func (s *connectionState) Status() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ConnectionID returns the current connection id, if one is known.
func (s *connectionState) ConnectionID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID, s.connectionID != ""
}

// Identity returns the currently installed identity, or nil.
func (s *connectionState) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *connectionState) setIdentity(identity *Identity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
}

// applyStatus records a transport-reported status change. A connected status
// installs the connection id and releases connection-id waiters with it; a
// disconnected status records the failure, clears the id, and releases the
// waiters with absence so nobody waits on a connection that will not come.
func (s *connectionState) applyStatus(status ConnectionStatus) {
	s.mu.Lock()
	s.status = status
	var complete func()
	switch status.Code {
	case StatusConnected:
		s.connectionID = status.ConnectionID
		id := status.ConnectionID
		complete = func() { s.connIDWaiters.CompleteAll(&id) }
	case StatusDisconnected:
		s.connectionID = ""
		if status.Err != nil {
			s.lastConnectErr = status.Err
		}
		complete = func() { s.connIDWaiters.CompleteAll(nil) }
	}
	s.mu.Unlock()
	if complete != nil {
		complete()
	}
}

// clearConnection drops the connection id and cancels every connection-id
// waiter. Used after a coordinator-driven transport disconnect completes.
func (s *connectionState) clearConnection(source DisconnectSource) {
	s.mu.Lock()
	s.connectionID = ""
	s.status = StatusDisconnectedBy(source, nil)
	s.mu.Unlock()
	s.connIDWaiters.CompleteAll(nil)
}

// cancelConnectionWaiters releases every connection-id waiter with absence
// without touching the status. Used on the no-op disconnect path and when the
// owning client is destroyed.
func (s *connectionState) cancelConnectionWaiters() {
	s.connIDWaiters.CompleteAll(nil)
}

// lastError returns the last transport error observed on disconnect.
func (s *connectionState) lastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConnectErr
}

// provideConnectionID completes immediately with a known connection id or
// waits for one, failing with ErrorMissingConnectionID on absence or
// ErrorTimeout on expiry.
func (s *connectionState) provideConnectionID(timeout time.Duration, completion func(string, error)) {
	current := func() *string {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.connectionID == "" {
			return nil
		}
		id := s.connectionID
		return &id
	}
	s.connIDWaiters.Provide(current, timeout, NewError(ErrorMissingConnectionID, "connection id never arrived"), func(id *string, err error) {
		if err != nil {
			completion("", err)
			return
		}
		completion(*id, nil)
	})
}

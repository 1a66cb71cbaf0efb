package chatkit

import "time"

// Config controls how the SDK connects.
type Config struct {
	// WebsocketURL is the websocket endpoint base, e.g. "wss://chat.example.com/ws".
	// The resolved identity is appended as query parameters on connect.
	WebsocketURL string

	// APIBaseURL is the REST API base, e.g. "https://chat.example.com/api".
	APIBaseURL string

	// Mode fixes whether this client may open the transport.
	Mode Mode

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// WaiterTimeout bounds ProvideToken/ProvideConnectionID waits issued
	// internally (pending requests supply their own).
	WaiterTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeActive,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     10 * time.Second,
		WaiterTimeout:    10 * time.Second,
	}
}

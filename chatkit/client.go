package chatkit

import (
	"context"
	"sync/atomic"
	"time"
)

// clientDeps bundles the external collaborators the coordinator consumes.
type clientDeps struct {
	transport Transport
	requests  RequestQueue
	syncMgr   SyncManager
	store     Store
	workers   WorkerFactory
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithTransport replaces the default websocket transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.deps.transport = t }
}

// WithRequestQueue attaches the HTTP request layer whose pending requests are
// flushed on disconnect.
func WithRequestQueue(q RequestQueue) Option {
	return func(c *Client) { c.deps.requests = q }
}

// WithSyncManager attaches the recovery-flow owner cancelled on disconnect.
func WithSyncManager(s SyncManager) Option {
	return func(c *Client) { c.deps.syncMgr = s }
}

// WithStore attaches the local persistent store wiped on identity change.
func WithStore(s Store) Option {
	return func(c *Client) { c.deps.store = s }
}

// WithWorkerFactory attaches the background-worker factory rebuilt on
// identity change.
func WithWorkerFactory(f WorkerFactory) Option {
	return func(c *Client) { c.deps.workers = f }
}

// WithLogger sets the logger at construction.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.log.set(l) }
}

// Client provides the high-level SDK facade. It owns the single mutable
// "current identity + current connection" state; all mutation funnels through
// the coordinator.
type Client struct {
	cfg   Config
	log   *logHandle
	state *connectionState
	auth  *authRepository
	coord *coordinator
	deps  clientDeps
	alive atomic.Bool
}

// NewClient constructs a client with the provided config. Use DefaultConfig()
// as a starting point. Collaborators not supplied through options fall back
// to working defaults: a websocket transport over cfg.WebsocketURL and no-op
// store/queue/sync/worker collaborators.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:   cfg,
		log:   newLogHandle(noopLogger{}),
		state: newConnectionState(),
	}
	c.alive.Store(true)
	c.auth = newAuthRepository(c.log)

	for _, opt := range opts {
		opt(c)
	}
	if c.deps.transport == nil {
		c.deps.transport = newWSTransport(cfg, c.log)
	}
	if c.deps.requests == nil {
		c.deps.requests = nopRequestQueue{}
	}
	if c.deps.syncMgr == nil {
		c.deps.syncMgr = nopSyncManager{}
	}
	if c.deps.store == nil {
		c.deps.store = nopStore{}
	}
	if c.deps.workers == nil {
		c.deps.workers = &workerRegistry{}
	}

	c.coord = newCoordinator(cfg, c.deps, c.state, c.auth, &c.alive, c.log)
	c.deps.transport.SetOnStatusChange(c.handleStatusChange)
	return c
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.log.set(l)
}

// ConnectUser resolves a token for userID through provider and brings the
// connection up for that user, switching identities if needed.
func (c *Client) ConnectUser(ctx context.Context, userID string, provider TokenProvider, completion func(error)) {
	c.coord.ReloadUserIfNeeded(ctx, &Identity{UserID: userID}, provider, completion)
}

// ReloadUserIfNeeded re-runs the reload sequence for the current user, e.g.
// after app relaunch (nil provider resumes the stored token) or to refresh
// the token in place.
func (c *Client) ReloadUserIfNeeded(ctx context.Context, provider TokenProvider, completion func(error)) {
	c.coord.ReloadUserIfNeeded(ctx, nil, provider, completion)
}

// Connect brings the transport up for the already-prepared identity.
func (c *Client) Connect(completion func(error)) {
	c.coord.Connect(completion)
}

// Disconnect tears the connection down and releases every queued request.
func (c *Client) Disconnect(source DisconnectSource, completion func()) {
	c.coord.Disconnect(source, completion)
}

// PrepareEnvironment installs an already-resolved identity without
// connecting. Most callers want ConnectUser instead.
func (c *Client) PrepareEnvironment(identity Identity, completion func(error)) {
	c.coord.PrepareEnvironment(identity, completion)
}

// ProvideToken completes with the current token or waits for one.
func (c *Client) ProvideToken(timeout time.Duration, completion func(Token, error)) {
	c.auth.ProvideToken(timeout, completion)
}

// ProvideConnectionID completes with the current connection id or waits for
// one.
func (c *Client) ProvideConnectionID(timeout time.Duration, completion func(string, error)) {
	c.state.provideConnectionID(timeout, completion)
}

// CurrentIdentity returns the identity installed by the last successful
// prepare, or nil.
func (c *Client) CurrentIdentity() *Identity {
	return c.state.Identity()
}

// ConnectionID returns the current connection id, if connected.
func (c *Client) ConnectionID() (string, bool) {
	return c.state.ConnectionID()
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	return c.state.Status()
}

// Close destroys the client. In-flight waiters resolve with terminal errors
// rather than hanging; the transport is torn down best-effort.
func (c *Client) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	c.deps.requests.FlushPendingRequests()
	c.deps.syncMgr.CancelRecoveryFlow()
	c.deps.transport.Disconnect(SourceUser, func() {})
	c.state.clearConnection(SourceUser)
	c.auth.tokenWaiters.CompleteAll(nil)
}

func (c *Client) handleStatusChange(status ConnectionStatus) {
	if !c.alive.Load() {
		return
	}
	c.log.Debug("connection status changed", map[string]any{"status": status.Code.String()})
	c.state.applyStatus(status)
}

// logHandle lets SetLogger swap the logger after collaborators captured it.
type logHandle struct {
	v atomic.Value
}

func newLogHandle(l Logger) *logHandle {
	h := &logHandle{}
	h.v.Store(&l)
	return h
}

func (h *logHandle) set(l Logger) { h.v.Store(&l) }

func (h *logHandle) get() Logger { return *h.v.Load().(*Logger) }

func (h *logHandle) Debug(msg string, fields map[string]any) { h.get().Debug(msg, fields) }
func (h *logHandle) Info(msg string, fields map[string]any)  { h.get().Info(msg, fields) }
func (h *logHandle) Warn(msg string, fields map[string]any)  { h.get().Warn(msg, fields) }
func (h *logHandle) Error(msg string, fields map[string]any) { h.get().Error(msg, fields) }

// No-op collaborator defaults.

type nopRequestQueue struct{}

func (nopRequestQueue) FlushPendingRequests() {}

type nopSyncManager struct{}

func (nopSyncManager) CancelRecoveryFlow() {}

type nopStore struct{}

func (nopStore) WipeAll(completion func(error)) { completion(nil) }

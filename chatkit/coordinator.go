package chatkit

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
)

// coordinator drives the disconnect/connect/reload/prepare-environment state
// machine. Every public operation completes asynchronously through the
// supplied callback; none block the caller.
type coordinator struct {
	cfg       Config
	mode      Mode
	state     *connectionState
	auth      *authRepository
	transport Transport
	requests  RequestQueue
	syncMgr   SyncManager
	store     Store
	workers   WorkerFactory
	logger    Logger

	// alive is owned by the client facade. Waiter callbacks check it before
	// touching coordinator state so a destroyed client still resolves its
	// callers instead of hanging them.
	alive *atomic.Bool

	// reloadMu guards the FIFO reload queue. Reloads issued while one is in
	// flight queue behind it in call order; two identity swaps never
	// interleave and the last-requested identity wins.
	reloadMu     sync.Mutex
	reloadQueue  []func(release func())
	reloadActive bool
}

func newCoordinator(cfg Config, deps clientDeps, state *connectionState, auth *authRepository, alive *atomic.Bool, logger Logger) *coordinator {
	return &coordinator{
		cfg:       cfg,
		mode:      cfg.Mode,
		state:     state,
		auth:      auth,
		transport: deps.transport,
		requests:  deps.requests,
		syncMgr:   deps.syncMgr,
		store:     deps.store,
		workers:   deps.workers,
		logger:    logger,
		alive:     alive,
	}
}

// Disconnect releases queued requests and tears the transport down.
//
// The pending-request flush and recovery-flow cancellation run on every call,
// even when the transport is already down: callers such as logout rely on
// queued requests being released. Completion fires exactly once, synchronously
// when there is no transport work to do.
func (c *coordinator) Disconnect(source DisconnectSource, completion func()) {
	c.requests.FlushPendingRequests()
	c.syncMgr.CancelRecoveryFlow()

	status := c.state.Status()
	if status.Code != StatusConnected && status.Code != StatusConnecting {
		// Nothing to tear down, but waiters registered against a connection
		// that will never come must still be released.
		c.state.cancelConnectionWaiters()
		completion()
		return
	}

	c.logger.Info("disconnecting", map[string]any{"source": source.String()})
	c.transport.Disconnect(source, func() {
		c.state.clearConnection(source)
		completion()
	})
}

// Connect resolves once a connection id is known. On an already-connected
// client it completes immediately and leaves the transport alone. Otherwise
// the connection-id waiter, not the transport call, is the source of truth:
// the transport reports the outcome on its status stream and the waiter
// resolves from there.
func (c *coordinator) Connect(completion func(error)) {
	if c.mode == ModePassive {
		completion(NewError(ErrorNotActiveMode, "connect requires an active-mode client"))
		return
	}

	if _, ok := c.state.ConnectionID(); ok {
		completion(nil)
		return
	}

	c.state.provideConnectionID(0, func(_ string, err error) {
		if c.alive != nil && !c.alive.Load() {
			completion(NewError(ErrorClientDeallocated, "client destroyed before connect resolved"))
			return
		}
		if err != nil {
			completion(WrapError(ErrorConnectionNotSuccessful, "connect attempt ended without a connection id", c.state.lastError()))
			return
		}
		completion(nil)
	})
	c.transport.Connect()
}

// PrepareEnvironment installs a resolved identity: token waiters, store wipe,
// worker rebuild, and the transport endpoint. It never opens the transport
// itself; in passive mode it completes with ErrorNotActiveMode after the
// token and worker side effects have run.
func (c *coordinator) PrepareEnvironment(identity Identity, completion func(error)) {
	var oldUserID string
	if cur := c.state.Identity(); cur != nil {
		oldUserID = cur.UserID
	}
	userChanged := oldUserID != "" && oldUserID != identity.UserID

	// Token waiters for a replaced user are cancelled, never handed the new
	// user's token.
	if userChanged {
		c.auth.SwapToken(identity.Token)
	} else {
		c.auth.SetToken(identity.Token)
	}

	plan := needsReset(oldUserID, identity.UserID, c.workers.WorkerCount())
	c.logger.Debug("preparing environment", map[string]any{
		"user_id":         identity.UserID,
		"user_changed":    userChanged,
		"wipe_store":      plan.WipeStore,
		"rebuild_workers": plan.RebuildWorkers,
	})

	finish := func() {
		if plan.RebuildWorkers {
			c.workers.RemoveAllWorkers()
			c.workers.CreateWorkers()
		}
		c.state.setIdentity(&identity)

		endpoint := c.connectEndpoint(identity)
		if !(c.transport.ConnectEndpoint() == endpoint && c.mode == ModeActive) {
			c.transport.SetConnectEndpoint(endpoint)
		}

		if c.mode == ModePassive {
			completion(NewError(ErrorNotActiveMode, "passive client prepared but may not connect"))
			return
		}
		completion(nil)
	}

	if plan.WipeStore {
		c.store.WipeAll(func(err error) {
			if err != nil {
				c.logger.Error("store wipe failed", map[string]any{"error": err.Error()})
				completion(err)
				return
			}
			finish()
		})
		return
	}
	finish()
}

// ReloadUserIfNeeded is the top-level entry for identity changes, token
// refreshes, and session resumption. Concurrent calls queue behind the one in
// flight in call order and then run their own full sequence.
func (c *coordinator) ReloadUserIfNeeded(ctx context.Context, proposed *Identity, provider TokenProvider, completion func(error)) {
	c.enqueueReload(func(release func()) {
		done := func(err error) {
			release()
			completion(err)
		}

		if provider == nil {
			token, ok := c.resumeToken(proposed)
			if !ok {
				done(NewError(ErrorConnectionWasNotInitiated, "no token provider, no stored identity to resume"))
				return
			}
			c.reloadWithToken(proposed, token, done)
			return
		}

		c.auth.RefreshToken(ctx, provider, func(token Token, err error) {
			if err != nil {
				done(err)
				return
			}
			c.reloadWithToken(proposed, token, done)
		})
	})
}

// enqueueReload appends the job on the caller's goroutine, pinning FIFO order
// to call order, then drives the queue asynchronously.
func (c *coordinator) enqueueReload(job func(release func())) {
	c.reloadMu.Lock()
	c.reloadQueue = append(c.reloadQueue, job)
	if c.reloadActive {
		c.reloadMu.Unlock()
		return
	}
	c.reloadActive = true
	c.reloadMu.Unlock()
	go c.runNextReload()
}

func (c *coordinator) runNextReload() {
	c.reloadMu.Lock()
	if len(c.reloadQueue) == 0 {
		c.reloadActive = false
		c.reloadMu.Unlock()
		return
	}
	next := c.reloadQueue[0]
	c.reloadQueue = c.reloadQueue[1:]
	c.reloadMu.Unlock()

	// release runs the successor on a fresh goroutine so a reload completing
	// synchronously cannot recurse into the next one's callback chain.
	next(func() { go c.runNextReload() })
}

// resumeToken picks the token for a provider-less reload: the proposed
// identity's embedded token, else the repository's current one.
func (c *coordinator) resumeToken(proposed *Identity) (Token, bool) {
	if proposed != nil && proposed.Token.RawValue != "" {
		return proposed.Token, true
	}
	return c.auth.CurrentToken()
}

// reloadWithToken runs the post-resolution sequence: disconnect when the user
// changed, prepare the environment, then connect.
func (c *coordinator) reloadWithToken(proposed *Identity, token Token, done func(error)) {
	userID := token.UserID
	if userID == "" && proposed != nil {
		userID = proposed.UserID
	}
	identity := Identity{UserID: userID, Token: token}

	prepare := func() {
		c.PrepareEnvironment(identity, func(err error) {
			if err != nil {
				done(err)
				return
			}
			// Only an active-mode client reaches here; its connect outcome
			// is the overall reload outcome.
			c.Connect(done)
		})
	}

	cur := c.state.Identity()
	if cur != nil && cur.UserID != identity.UserID {
		// Quiesce the old user first so its pending requests are released
		// and never observe the new user's connection.
		c.Disconnect(SourceUser, prepare)
		return
	}
	// Same user: the connection survives a pure token refresh.
	prepare()
}

// connectEndpoint builds the websocket endpoint for an identity.
func (c *coordinator) connectEndpoint(identity Identity) string {
	u, err := url.Parse(c.cfg.WebsocketURL)
	if err != nil || c.cfg.WebsocketURL == "" {
		return c.cfg.WebsocketURL
	}
	q := u.Query()
	q.Set("user_id", identity.UserID)
	q.Set("authorization", identity.Token.RawValue)
	u.RawQuery = q.Encode()
	return u.String()
}

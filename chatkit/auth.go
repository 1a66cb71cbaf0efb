package chatkit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshKey collapses concurrent refreshes onto one provider call.
const refreshKey = "token-refresh"

// authRepository owns the current token and resolves token providers.
// Concurrent refreshes are de-duplicated: while one provider call is in
// flight, later callers attach to its result instead of invoking the
// provider again.
type authRepository struct {
	mu           sync.Mutex
	token        *Token
	tokenWaiters *waiterList[Token]
	group        singleflight.Group
	logger       Logger
}

func newAuthRepository(logger Logger) *authRepository {
	return &authRepository{
		tokenWaiters: newWaiterList[Token](),
		logger:       logger,
	}
}

// SetToken installs a token unconditionally and completes outstanding token
// waiters with it. Used for bootstrap and same-user re-login paths.
func (r *authRepository) SetToken(token Token) {
	r.mu.Lock()
	t := token
	r.token = &t
	r.mu.Unlock()
	r.tokenWaiters.CompleteAll(&t)
}

// SwapToken installs a token for a different user. Outstanding waiters belong
// to the previous user and are completed with absence, never with the new
// user's token.
func (r *authRepository) SwapToken(token Token) {
	r.mu.Lock()
	t := token
	r.token = &t
	r.mu.Unlock()
	r.tokenWaiters.CompleteAll(nil)
}

// CurrentToken returns the installed token, if any.
func (r *authRepository) CurrentToken() (Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == nil {
		return Token{}, false
	}
	return *r.token, true
}

// RefreshToken resolves provider and delivers the result to completion. If a
// refresh is already in flight the completion is attached to it and provider
// is not called again. On failure the previous token stays untouched and the
// error goes to this caller only; waiters are not released.
func (r *authRepository) RefreshToken(ctx context.Context, provider TokenProvider, completion func(Token, error)) {
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		token, err := provider(ctx)
		if err != nil {
			return Token{}, err
		}
		r.mu.Lock()
		t := token
		r.token = &t
		r.mu.Unlock()
		return token, nil
	})
	go func() {
		res := <-ch
		if res.Err != nil {
			r.logger.Warn("token refresh failed", map[string]any{"error": res.Err.Error()})
			completion(Token{}, res.Err)
			return
		}
		completion(res.Val.(Token), nil)
	}()
}

// ProvideToken completes immediately with the installed token or waits for
// one, failing with ErrorMissingToken on absence or ErrorTimeout on expiry.
func (r *authRepository) ProvideToken(timeout time.Duration, completion func(Token, error)) {
	current := func() *Token {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.token
	}
	r.tokenWaiters.Provide(current, timeout, NewError(ErrorMissingToken, "no token installed"), func(token *Token, err error) {
		if err != nil {
			completion(Token{}, err)
			return
		}
		completion(*token, nil)
	})
}

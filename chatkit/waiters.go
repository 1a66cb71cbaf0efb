package chatkit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// waiter is a pending callback awaiting a value that is not yet available.
// A nil pointer passed to the callback is the "absent" sentinel: the value
// definitively will not arrive.
type waiter[T any] struct {
	id       string
	callback func(*T)
}

// waiterList stores waiters in insertion order keyed by a generated unique id.
// All mutation is atomic with respect to concurrent producers and consumers.
type waiterList[T any] struct {
	mu      sync.Mutex
	waiters []waiter[T]
}

func newWaiterList[T any]() *waiterList[T] {
	return &waiterList[T]{}
}

// Register stores the callback and returns its waiter id.
func (l *waiterList[T]) Register(callback func(*T)) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registerLocked(callback)
}

func (l *waiterList[T]) registerLocked(callback func(*T)) string {
	id := uuid.NewString()
	l.waiters = append(l.waiters, waiter[T]{id: id, callback: callback})
	return id
}

// CompleteAll invokes every registered callback exactly once with the same
// value, in registration order, then clears the list. Callbacks run outside
// the lock so they may re-register.
func (l *waiterList[T]) CompleteAll(value *T) {
	l.mu.Lock()
	pending := l.waiters
	l.waiters = nil
	l.mu.Unlock()
	for _, w := range pending {
		w.callback(value)
	}
}

// Invalidate removes one waiter without invoking it. Safe to race with
// CompleteAll: whichever runs second finds nothing to do.
func (l *waiterList[T]) Invalidate(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, w := range l.waiters {
		if w.id == id {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// Len reports the number of registered waiters.
func (l *waiterList[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// Provide completes immediately when current yields a value, otherwise
// registers a waiter. The current check and the registration happen under the
// same lock, so a producer that publishes a value and then calls CompleteAll
// can never slip between them. If timeout elapses first the waiter is
// invalidated and completion receives a timeout error wrapping absentErr; a
// sync.Once guards against double completion when the timer races the value.
func (l *waiterList[T]) Provide(current func() *T, timeout time.Duration, absentErr error, completion func(*T, error)) {
	l.mu.Lock()
	if v := current(); v != nil {
		l.mu.Unlock()
		completion(v, nil)
		return
	}

	var (
		once    sync.Once
		timerMu sync.Mutex
		timer   *time.Timer
	)
	id := l.registerLocked(func(value *T) {
		once.Do(func() {
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			if value == nil {
				completion(nil, absentErr)
				return
			}
			completion(value, nil)
		})
	})
	l.mu.Unlock()

	if timeout > 0 {
		t := time.AfterFunc(timeout, func() {
			once.Do(func() {
				l.Invalidate(id)
				completion(nil, WrapError(ErrorTimeout, "timed out waiting for value", absentErr))
			})
		})
		timerMu.Lock()
		timer = t
		timerMu.Unlock()
	}
}

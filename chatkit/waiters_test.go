package chatkit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaiterListCompleteAllOrderAndOnce(t *testing.T) {
	l := newWaiterList[string]()
	var mu sync.Mutex
	var got []string

	for _, name := range []string{"a", "b", "c"} {
		name := name
		l.Register(func(v *string) {
			mu.Lock()
			got = append(got, name+":"+*v)
			mu.Unlock()
		})
	}

	v := "x"
	l.CompleteAll(&v)
	l.CompleteAll(&v) // second pass finds nothing

	assert.Equal(t, []string{"a:x", "b:x", "c:x"}, got)
	assert.Zero(t, l.Len())
}

func TestWaiterListAbsence(t *testing.T) {
	l := newWaiterList[string]()
	var gotNil bool
	l.Register(func(v *string) { gotNil = v == nil })
	l.CompleteAll(nil)
	assert.True(t, gotNil)
}

func TestWaiterListInvalidate(t *testing.T) {
	l := newWaiterList[int]()
	var fired bool
	id := l.Register(func(*int) { fired = true })
	l.Register(func(*int) {})

	l.Invalidate(id)
	require.Equal(t, 1, l.Len())

	v := 1
	l.CompleteAll(&v)
	assert.False(t, fired, "invalidated waiter must not fire")
}

func TestProvideImmediate(t *testing.T) {
	l := newWaiterList[int]()
	seven := 7

	var got int
	l.Provide(func() *int { return &seven }, time.Second, NewError(ErrorMissingToken, "missing"), func(v *int, err error) {
		require.NoError(t, err)
		got = *v
	})
	assert.Equal(t, 7, got)
	assert.Zero(t, l.Len(), "immediate completion must not register a waiter")
}

func TestProvideWaitsForValue(t *testing.T) {
	l := newWaiterList[int]()
	done := make(chan int, 1)
	l.Provide(func() *int { return nil }, time.Second, NewError(ErrorMissingToken, "missing"), func(v *int, err error) {
		require.NoError(t, err)
		done <- *v
	})

	v := 42
	l.CompleteAll(&v)
	select {
	case got := <-done:
		assert.Equal(t, 42, got)
	case <-time.After(time.Second):
		t.Fatal("waiter never completed")
	}
}

func TestProvideTimeoutIsolated(t *testing.T) {
	l := newWaiterList[int]()
	timedOut := make(chan error, 1)
	l.Provide(func() *int { return nil }, 20*time.Millisecond, NewError(ErrorMissingConnectionID, "missing"), func(_ *int, err error) {
		timedOut <- err
	})
	survived := make(chan int, 1)
	l.Provide(func() *int { return nil }, time.Minute, NewError(ErrorMissingConnectionID, "missing"), func(v *int, err error) {
		require.NoError(t, err)
		survived <- *v
	})

	select {
	case err := <-timedOut:
		assert.True(t, HasCode(err, ErrorTimeout))
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}

	// The expired waiter is gone; the other one still resolves normally.
	v := 9
	l.CompleteAll(&v)
	select {
	case got := <-survived:
		assert.Equal(t, 9, got)
	case <-time.After(time.Second):
		t.Fatal("surviving waiter never completed")
	}

	select {
	case <-timedOut:
		t.Fatal("timed-out waiter completed twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProvideAbsence(t *testing.T) {
	l := newWaiterList[int]()
	done := make(chan error, 1)
	l.Provide(func() *int { return nil }, time.Second, NewError(ErrorMissingConnectionID, "missing"), func(_ *int, err error) {
		done <- err
	})
	l.CompleteAll(nil)

	select {
	case err := <-done:
		assert.True(t, HasCode(err, ErrorMissingConnectionID))
	case <-time.After(time.Second):
		t.Fatal("absence never delivered")
	}
}

package chatkit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusConnectedReleasesWaiters(t *testing.T) {
	s := newConnectionState()

	got := make(chan string, 1)
	s.provideConnectionID(time.Second, func(id string, err error) {
		require.NoError(t, err)
		got <- id
	})

	s.applyStatus(StatusConnectedWith("conn-9"))

	select {
	case id := <-got:
		assert.Equal(t, "conn-9", id)
	case <-time.After(time.Second):
		t.Fatal("waiter never completed")
	}

	id, ok := s.ConnectionID()
	require.True(t, ok)
	assert.Equal(t, "conn-9", id)
	assert.Equal(t, StatusConnected, s.Status().Code)
}

func TestApplyStatusDisconnectedRecordsErrorAndCancels(t *testing.T) {
	s := newConnectionState()
	s.applyStatus(StatusConnectedWith("conn-9"))

	cause := errors.New("server hiccup")
	failed := make(chan error, 1)
	s.provideConnectionID(time.Second, func(_ string, err error) { failed <- err })
	// The waiter above registered after connect, so it resolved immediately.
	<-failed

	s.applyStatus(StatusDisconnectedBy(SourceServer, cause))
	s.provideConnectionID(50*time.Millisecond, func(_ string, err error) { failed <- err })

	select {
	case err := <-failed:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never completed")
	}

	_, ok := s.ConnectionID()
	assert.False(t, ok)
	assert.ErrorIs(t, s.lastError(), cause)
}

func TestClearConnection(t *testing.T) {
	s := newConnectionState()
	s.applyStatus(StatusConnectedWith("conn-9"))

	s.clearConnection(SourceUser)

	_, ok := s.ConnectionID()
	assert.False(t, ok)
	st := s.Status()
	assert.Equal(t, StatusDisconnected, st.Code)
	assert.Equal(t, SourceUser, st.Source)
}

func TestProvideConnectionIDImmediate(t *testing.T) {
	s := newConnectionState()
	s.applyStatus(StatusConnectedWith("conn-9"))

	var got string
	s.provideConnectionID(0, func(id string, err error) {
		require.NoError(t, err)
		got = id
	})
	assert.Equal(t, "conn-9", got)
}

package services

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"skill-barter-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records frames written by the hub.
type fakeConn struct {
	mu         sync.Mutex
	frames     []WSMessage
	closed     bool
	failWrites bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("write failed")
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.frames = append(c.frames, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []WSMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WSMessage(nil), c.frames...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegisterReplacesExistingConnection(t *testing.T) {
	hub := NewWSHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register("alice", first)
	hub.Register("alice", second)

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	assert.True(t, hub.IsOnline("alice"))

	require.NoError(t, hub.SendToUser("alice", WSMessage{Type: WSEventNewMessage}))
	assert.Empty(t, first.received())
	assert.Len(t, second.received(), 1)
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	hub := NewWSHub()
	hub.Register("alice", &fakeConn{})
	hub.JoinRoom("swap-1", "alice")
	hub.JoinRoom("swap-2", "alice")

	require.True(t, hub.InRoom("swap-1", "alice"))
	require.True(t, hub.InRoom("swap-2", "alice"))

	hub.Unregister("alice")

	assert.False(t, hub.IsOnline("alice"))
	assert.False(t, hub.InRoom("swap-1", "alice"))
	assert.False(t, hub.InRoom("swap-2", "alice"))
}

func TestSendToUserNotConnected(t *testing.T) {
	hub := NewWSHub()
	err := hub.SendToUser("ghost", WSMessage{Type: WSEventNewMessage})
	assert.Error(t, err)
}

func TestBroadcastToRoomExcludesSender(t *testing.T) {
	hub := NewWSHub()
	alice := &fakeConn{}
	bob := &fakeConn{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)
	hub.JoinRoom("swap-1", "alice")
	hub.JoinRoom("swap-1", "bob")

	hub.BroadcastToRoom("swap-1", WSMessage{
		Type:     WSEventTypingStart,
		SwapID:   "swap-1",
		UserID:   "alice",
		UserName: "Alice",
	}, "alice")

	assert.Empty(t, alice.received(), "sender must not receive their own event")
	frames := bob.received()
	require.Len(t, frames, 1)
	assert.Equal(t, WSEventTypingStart, frames[0].Type)
	assert.Equal(t, "Alice", frames[0].UserName)
}

func TestBroadcastToRoomSkipsNonMembers(t *testing.T) {
	hub := NewWSHub()
	bob := &fakeConn{}
	carol := &fakeConn{}
	hub.Register("bob", bob)
	hub.Register("carol", carol)
	hub.JoinRoom("swap-1", "bob")

	hub.BroadcastToRoom("swap-1", WSMessage{Type: WSEventNewMessage, SwapID: "swap-1"}, "")

	assert.Len(t, bob.received(), 1)
	assert.Empty(t, carol.received(), "connected but not in the room")
}

func TestBroadcastDropsFailedConnections(t *testing.T) {
	hub := NewWSHub()
	flaky := &fakeConn{failWrites: true}
	healthy := &fakeConn{}
	hub.Register("alice", flaky)
	hub.Register("bob", healthy)
	hub.JoinRoom("swap-1", "alice")
	hub.JoinRoom("swap-1", "bob")

	hub.BroadcastToRoom("swap-1", WSMessage{Type: WSEventNewMessage, SwapID: "swap-1"}, "")

	// The failing connection is evicted; the fan-out still reaches bob.
	assert.Len(t, healthy.received(), 1)
	assert.False(t, hub.IsOnline("alice"))
	assert.True(t, flaky.isClosed())
}

func TestNotifySwapUpdated(t *testing.T) {
	hub := NewWSHub()
	alice := &fakeConn{}
	bob := &fakeConn{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)
	hub.JoinRoom("swap-1", "alice")
	hub.JoinRoom("swap-1", "bob")

	hub.NotifySwapUpdated(&models.Swap{ID: "swap-1", Status: models.StatusInProgress})

	for _, conn := range []*fakeConn{alice, bob} {
		frames := conn.received()
		require.Len(t, frames, 1)
		assert.Equal(t, WSEventSwapUpdated, frames[0].Type)
		assert.Equal(t, "swap-1", frames[0].SwapID)
		require.NotNil(t, frames[0].Data)
	}
}

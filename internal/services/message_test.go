package services

import (
	"context"
	"testing"

	"skill-barter-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	swap := env.activeSwap(t, alice.ID, bob.ID)

	msg, err := env.messageSvc.Send(context.Background(), alice.ID, SendMessageInput{
		SwapID:  swap.ID,
		Content: "  shall we start tomorrow?  ",
	})
	require.NoError(t, err)

	assert.Equal(t, swap.ID, msg.SwapID)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, "shall we start tomorrow?", msg.Content)
	assert.Equal(t, []string{alice.ID}, msg.SeenBy, "sender is seeded into the seen set")
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "Alice", msg.Sender.DisplayName)
}

func TestSendMessageGatedOnSwapState(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	ctx := context.Background()

	pending := env.proposeSwap(t, alice.ID, "go")
	_, err := env.messageSvc.Send(ctx, alice.ID, SendMessageInput{SwapID: pending.ID, Content: "hello?"})
	var aErr *AuthorizationError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, "messaging is not available for a pending swap", aErr.Reason)

	rejected := env.proposeSwap(t, alice.ID, "go")
	_, err = env.swapSvc.Reject(ctx, bob.ID, rejected.ID)
	require.NoError(t, err)
	_, err = env.messageSvc.Send(ctx, alice.ID, SendMessageInput{SwapID: rejected.ID, Content: "why?"})
	require.ErrorAs(t, err, &aErr)

	// Chat stays open after completion.
	completed := env.completedSwap(t, alice.ID, bob.ID)
	_, err = env.messageSvc.Send(ctx, bob.ID, SendMessageInput{SwapID: completed.ID, Content: "thanks again"})
	assert.NoError(t, err)
}

func TestSendMessagePartyOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	carol := env.seedUser(t, "Carol")
	swap := env.activeSwap(t, alice.ID, bob.ID)

	_, err := env.messageSvc.Send(context.Background(), carol.ID, SendMessageInput{
		SwapID:  swap.ID,
		Content: "let me in",
	})
	var aErr *AuthorizationError
	assert.ErrorAs(t, err, &aErr)
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	swap := env.activeSwap(t, alice.ID, bob.ID)
	ctx := context.Background()

	_, err := env.messageSvc.Send(ctx, alice.ID, SendMessageInput{Content: "no swap"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = env.messageSvc.Send(ctx, alice.ID, SendMessageInput{SwapID: swap.ID, Content: "   "})
	assert.ErrorAs(t, err, &vErr)

	_, err = env.messageSvc.Send(ctx, alice.ID, SendMessageInput{SwapID: "no-such-swap", Content: "hi"})
	var nErr *NotFoundError
	assert.ErrorAs(t, err, &nErr)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	swap := env.activeSwap(t, alice.ID, bob.ID)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.messageSvc.Send(ctx, bob.ID, SendMessageInput{SwapID: swap.ID, Content: content})
		require.NoError(t, err)
	}

	unread, err := env.messageSvc.UnreadCount(ctx, alice.ID, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	// Bob's own messages are never unread for him.
	unread, err = env.messageSvc.UnreadCount(ctx, bob.ID, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	messages, err := env.messageSvc.MarkSeen(ctx, alice.ID, swap.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for _, msg := range messages {
		assert.True(t, msg.SeenByUser(alice.ID))
		assert.Len(t, msg.SeenBy, 2, "repeated marking must not duplicate entries")
	}

	_, err = env.messageSvc.MarkSeen(ctx, alice.ID, swap.ID)
	require.NoError(t, err)
	messages, err = env.messageSvc.List(ctx, alice.ID, swap.ID)
	require.NoError(t, err)
	for _, msg := range messages {
		assert.Len(t, msg.SeenBy, 2)
	}

	unread, err = env.messageSvc.UnreadCount(ctx, alice.ID, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestListMessagesOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	swap := env.activeSwap(t, alice.ID, bob.ID)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		_, err := env.messageSvc.Send(ctx, alice.ID, SendMessageInput{SwapID: swap.ID, Content: content})
		require.NoError(t, err)
	}

	messages, err := env.messageSvc.List(ctx, bob.ID, swap.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "third", messages[2].Content)

	carol := env.seedUser(t, "Carol")
	_, err = env.messageSvc.List(ctx, carol.ID, swap.ID)
	var aErr *AuthorizationError
	assert.ErrorAs(t, err, &aErr)
}

func TestUserSwapsWithLatest(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	ctx := context.Background()

	// Pending swaps have no conversation and must not appear.
	env.proposeSwap(t, alice.ID, "go")

	chatty := env.activeSwap(t, alice.ID, bob.ID)
	quiet := env.activeSwap(t, alice.ID, bob.ID)

	_, err := env.messageSvc.Send(ctx, bob.ID, SendMessageInput{SwapID: chatty.ID, Content: "ping"})
	require.NoError(t, err)
	_, err = env.messageSvc.Send(ctx, bob.ID, SendMessageInput{SwapID: chatty.ID, Content: "pong"})
	require.NoError(t, err)

	conversations, err := env.messageSvc.UserSwapsWithLatest(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	byID := make(map[string]*models.SwapWithLatestMessage, len(conversations))
	for _, conv := range conversations {
		byID[conv.Swap.ID] = conv
	}

	withChat := byID[chatty.ID]
	require.NotNil(t, withChat)
	require.NotNil(t, withChat.LatestMessage)
	assert.Equal(t, "pong", withChat.LatestMessage.Content)
	assert.Equal(t, 2, withChat.UnreadCount)

	noChat := byID[quiet.ID]
	require.NotNil(t, noChat)
	assert.Nil(t, noChat.LatestMessage)
	assert.Equal(t, 0, noChat.UnreadCount)
}

func TestGetForRelay(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "go")
	bob := env.seedUser(t, "Bob")
	carol := env.seedUser(t, "Carol")
	swap := env.activeSwap(t, alice.ID, bob.ID)
	ctx := context.Background()

	sent, err := env.messageSvc.Send(ctx, alice.ID, SendMessageInput{SwapID: swap.ID, Content: "relay me"})
	require.NoError(t, err)

	got, err := env.messageSvc.GetForRelay(ctx, bob.ID, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, "relay me", got.Content)

	_, err = env.messageSvc.GetForRelay(ctx, carol.ID, sent.ID)
	var aErr *AuthorizationError
	assert.ErrorAs(t, err, &aErr)

	_, err = env.messageSvc.GetForRelay(ctx, bob.ID, "no-such-message")
	var nErr *NotFoundError
	assert.ErrorAs(t, err, &nErr)
}

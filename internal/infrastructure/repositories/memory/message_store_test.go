package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"echolink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveDirect(t *testing.T, store *MemoryMessageStore, from, to domain.PeerID, content string) string {
	t.Helper()
	id, err := store.SaveMessage(context.Background(), &domain.Message{
		SenderPeerID: from,
		TargetPeerID: to,
		Content:      content,
		Type:         domain.MessageTypeText,
		Timestamp:    time.Now(),
	})
	require.NoError(t, err)
	return id
}

func TestSaveMessageAssignsID(t *testing.T) {
	store := NewMemoryMessageStore().(*MemoryMessageStore)

	id := saveDirect(t, store, "p1", "p2", "hello")
	assert.NotEmpty(t, id)

	// The caller's envelope is not mutated by the store.
	msgs, err := store.DirectMessages(context.Background(), "p1", "p2", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
}

func TestDirectMessagesBothDirections(t *testing.T) {
	store := NewMemoryMessageStore().(*MemoryMessageStore)
	ctx := context.Background()

	saveDirect(t, store, "p1", "p2", "hi bob")
	saveDirect(t, store, "p2", "p1", "hi alice")
	saveDirect(t, store, "p1", "p3", "unrelated")

	msgs, err := store.DirectMessages(ctx, "p1", "p2", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi bob", msgs[0].Content)
	assert.Equal(t, "hi alice", msgs[1].Content)

	// Same conversation regardless of argument order.
	swapped, err := store.DirectMessages(ctx, "p2", "p1", 0)
	require.NoError(t, err)
	assert.Len(t, swapped, 2)
}

func TestDirectMessagesLimitKeepsNewest(t *testing.T) {
	store := NewMemoryMessageStore().(*MemoryMessageStore)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		saveDirect(t, store, "p1", "p2", fmt.Sprintf("msg-%d", i))
	}

	msgs, err := store.DirectMessages(ctx, "p1", "p2", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-3", msgs[0].Content)
	assert.Equal(t, "msg-4", msgs[1].Content)
}

func TestRoomMessagesIsolatedFromDirect(t *testing.T) {
	store := NewMemoryMessageStore().(*MemoryMessageStore)
	ctx := context.Background()

	saveDirect(t, store, "p1", "p2", "direct")
	_, err := store.SaveMessage(ctx, &domain.Message{
		SenderPeerID: "p1",
		RoomID:       "g1",
		Content:      "group",
		Type:         domain.MessageTypeText,
		Timestamp:    time.Now(),
	})
	require.NoError(t, err)

	roomMsgs, err := store.RoomMessages(ctx, "g1", 0)
	require.NoError(t, err)
	require.Len(t, roomMsgs, 1)
	assert.Equal(t, "group", roomMsgs[0].Content)

	directMsgs, err := store.DirectMessages(ctx, "p1", "p2", 0)
	require.NoError(t, err)
	require.Len(t, directMsgs, 1)
	assert.Equal(t, "direct", directMsgs[0].Content)
}

package services

import (
	"context"
	"testing"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRoomFixture() (ports.Registry, ports.Rooms, *fakeSender) {
	sender := &fakeSender{}
	registry := NewRegistry(zap.NewNop().Sugar())
	rooms := NewRooms(registry, nopRoomStore{}, sender, nopMetrics{}, time.Second, zap.NewNop().Sugar())
	return registry, rooms, sender
}

func announceUser(t *testing.T, registry ports.Registry, sid domain.SessionID, peer, user string) {
	t.Helper()
	_, err := registry.Announce(context.Background(), sid, domain.Identity{
		PeerID: domain.PeerID(peer),
		UserID: domain.UserID(user),
	})
	require.NoError(t, err)
}

func TestJoinRequiresIdentifiedSession(t *testing.T) {
	registry, rooms, _ := newRoomFixture()
	ctx := context.Background()

	_, err := registry.Announce(ctx, "s1", domain.Identity{PeerID: "p1"})
	require.NoError(t, err)

	_, err = rooms.Join(ctx, "s1", "g1")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = rooms.Join(ctx, "unknown", "g1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestJoinReturnsOthersAndNotifies(t *testing.T) {
	registry, rooms, sender := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	members, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)
	assert.Empty(t, members)

	members, err = rooms.Join(ctx, "s2", "g1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.UserID("alice"), members[0].UserID)

	// The earlier member is told about the join, the joiner is not.
	joined := sender.eventsTo("s1", domain.EventMemberJoined)
	require.Len(t, joined, 1)
	payload := joined[0].payload.(memberJoinedPayload)
	assert.Equal(t, domain.RoomID("g1"), payload.RoomID)
	assert.Equal(t, domain.UserID("bob"), payload.UserID)
	assert.Empty(t, sender.eventsTo("s2", domain.EventMemberJoined))
}

func TestCreateActsAsJoin(t *testing.T) {
	registry, rooms, _ := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")

	members, err := rooms.Create(ctx, "s1", "g1", "general", []domain.UserID{"bob"})
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.True(t, rooms.IsMember(ctx, "s1", "g1"))
}

func TestLeaveNotifiesAndDestroysEmptyRoom(t *testing.T) {
	registry, rooms, sender := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	_, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)
	_, err = rooms.Join(ctx, "s2", "g1")
	require.NoError(t, err)
	sender.reset()

	require.NoError(t, rooms.Leave(ctx, "s2", "g1"))

	left := sender.eventsTo("s1", domain.EventMemberLeft)
	require.Len(t, left, 1)
	assert.Equal(t, domain.UserID("bob"), left[0].payload.(memberLeftPayload).UserID)
	assert.False(t, rooms.IsMember(ctx, "s2", "g1"))

	// Last member out destroys the room; a later leave misses it.
	require.NoError(t, rooms.Leave(ctx, "s1", "g1"))
	assert.ErrorIs(t, rooms.Leave(ctx, "s1", "g1"), domain.ErrRoomNotFound)
}

func TestLeaveNotAMember(t *testing.T) {
	registry, rooms, _ := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	_, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Leave(ctx, "s2", "g1"), domain.ErrNotRoomMember)
}

func TestLeaveAllIsSilent(t *testing.T) {
	registry, rooms, sender := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	_, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)
	_, err = rooms.Join(ctx, "s1", "g2")
	require.NoError(t, err)
	_, err = rooms.Join(ctx, "s2", "g1")
	require.NoError(t, err)
	sender.reset()

	roomIDs := rooms.LeaveAll(ctx, "s1")
	assert.ElementsMatch(t, []domain.RoomID{"g1", "g2"}, roomIDs)

	// Disconnect cleanup relies on the generic offline broadcast; no
	// per-room member_left is sent.
	assert.Empty(t, sender.eventsTo("s2", domain.EventMemberLeft))
	assert.False(t, rooms.IsMember(ctx, "s1", "g1"))
	assert.True(t, rooms.IsMember(ctx, "s2", "g1"))
}

func TestTypingRequiresMembership(t *testing.T) {
	registry, rooms, sender := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	_, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Typing(ctx, "s2", "g1", true), domain.ErrNotRoomMember)
	assert.Empty(t, sender.eventsTo("s1", domain.EventMemberTypingStart))
}

func TestTypingFansOutToOthersOnly(t *testing.T) {
	registry, rooms, sender := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	_, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)
	_, err = rooms.Join(ctx, "s2", "g1")
	require.NoError(t, err)
	sender.reset()

	require.NoError(t, rooms.Typing(ctx, "s1", "g1", true))
	require.NoError(t, rooms.Typing(ctx, "s1", "g1", false))

	start := sender.eventsTo("s2", domain.EventMemberTypingStart)
	require.Len(t, start, 1)
	assert.Equal(t, domain.UserID("alice"), start[0].payload.(typingPayload).UserID)
	assert.Len(t, sender.eventsTo("s2", domain.EventMemberTypingStop), 1)

	assert.Empty(t, sender.eventsTo("s1", domain.EventMemberTypingStart))
	assert.Empty(t, sender.eventsTo("s1", domain.EventMemberTypingStop))
}

func TestBroadcastToRoomExcludes(t *testing.T) {
	registry, rooms, sender := newRoomFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")
	announceUser(t, registry, "s3", "p3", "carol")

	for _, sid := range []domain.SessionID{"s1", "s2", "s3"} {
		_, err := rooms.Join(ctx, sid, "g1")
		require.NoError(t, err)
	}
	sender.reset()

	rooms.BroadcastToRoom(ctx, "g1", "custom", "payload", "s2")

	assert.Len(t, sender.eventsTo("s1", "custom"), 1)
	assert.Empty(t, sender.eventsTo("s2", "custom"))
	assert.Len(t, sender.eventsTo("s3", "custom"), 1)
}

package services

import (
	"context"
	"testing"

	"echolink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry() *registryService {
	return NewRegistry(zap.NewNop().Sugar()).(*registryService)
}

func TestAnnounceAndResolve(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	result, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "alice", UserName: "Alice"})
	require.NoError(t, err)
	assert.True(t, result.WentOnline)
	assert.Nil(t, result.Superseded)

	byPeer, err := reg.ResolveSession(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s1"), byPeer)

	byUser, err := reg.ResolveSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s1"), byUser)

	sess, err := reg.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("p1"), sess.PeerID)
	assert.Equal(t, "Alice", sess.UserName)
}

func TestAnnounceIdempotent(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	first, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "alice"})
	require.NoError(t, err)
	assert.True(t, first.WentOnline)

	second, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "alice"})
	require.NoError(t, err)
	assert.False(t, second.WentOnline)
	assert.Nil(t, second.Superseded)
}

func TestAnnounceAnonymous(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	result, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1"})
	require.NoError(t, err)
	assert.False(t, result.WentOnline)

	sid, err := reg.ResolveSession(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s1"), sid)

	assert.Empty(t, reg.OnlineUsers(ctx, ""))
}

func TestAnnounceSupersedesStaleSession(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "alice"})
	require.NoError(t, err)

	// Same peer and user announce from a new connection. Last announce
	// wins; the old session is evicted wholesale.
	result, err := reg.Announce(ctx, "s2", domain.Identity{PeerID: "p1", UserID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, result.Superseded)
	assert.Equal(t, domain.SessionID("s1"), result.Superseded.ID)

	sid, err := reg.ResolveSession(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s2"), sid)

	// The stale session's release is a no-op now, which keeps its late
	// disconnect from broadcasting offline for the reconnected user.
	_, err = reg.Release(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = reg.Session(ctx, "s2")
	assert.NoError(t, err)
}

func TestReleaseIdempotent(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "alice"})
	require.NoError(t, err)

	released, err := reg.Release(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("alice"), released.UserID)

	_, err = reg.Release(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = reg.ResolveSession(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOnlineUsersExcludesGivenSession(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "bob"})
	require.NoError(t, err)
	_, err = reg.Announce(ctx, "s2", domain.Identity{PeerID: "p2", UserID: "alice"})
	require.NoError(t, err)
	_, err = reg.Announce(ctx, "s3", domain.Identity{PeerID: "p3", UserID: "carol"})
	require.NoError(t, err)

	users := reg.OnlineUsers(ctx, "s2")
	require.Len(t, users, 2)
	// Sorted by user id, the excluded session's user absent.
	assert.Equal(t, domain.UserID("bob"), users[0].UserID)
	assert.Equal(t, domain.UserID("carol"), users[1].UserID)
}

func TestReannounceWithNewPeerID(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	_, err := reg.Announce(ctx, "s1", domain.Identity{PeerID: "p1", UserID: "alice"})
	require.NoError(t, err)
	_, err = reg.Announce(ctx, "s1", domain.Identity{PeerID: "p2", UserID: "alice"})
	require.NoError(t, err)

	_, err = reg.ResolveSession(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sid, err := reg.ResolveSession(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s1"), sid)
}

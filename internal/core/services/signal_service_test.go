package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSignalFixture() (ports.Registry, ports.Rooms, ports.SignalRouter, *fakeSender) {
	sender := &fakeSender{}
	log := zap.NewNop().Sugar()
	registry := NewRegistry(log)
	rooms := NewRooms(registry, nopRoomStore{}, sender, nopMetrics{}, time.Second, log)
	router := NewSignalRouter(registry, rooms, sender, nopMetrics{}, log)
	return registry, rooms, router, sender
}

func TestRelayAddsSenderIdentity(t *testing.T) {
	registry, _, router, sender := newSignalFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	require.NoError(t, router.Relay(ctx, "s1", domain.SignalOffer, "p2", sdp, nil))

	got := sender.eventsTo("s2", "offer")
	require.Len(t, got, 1)
	signal := got[0].payload.(domain.Signal)
	assert.Equal(t, domain.SignalOffer, signal.Type)
	assert.Equal(t, domain.PeerID("p1"), signal.SenderPeerID)
	assert.Equal(t, domain.UserID("alice"), signal.SenderUserID)
	assert.JSONEq(t, string(sdp), string(signal.SDP))
}

func TestRelayResolvesUserID(t *testing.T) {
	registry, _, router, sender := newSignalFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	candidate := json.RawMessage(`{"candidate":"candidate:1"}`)
	require.NoError(t, router.Relay(ctx, "s1", domain.SignalCandidate, "bob", nil, candidate))

	got := sender.eventsTo("s2", "candidate")
	require.Len(t, got, 1)
	assert.JSONEq(t, string(candidate), string(got[0].payload.(domain.Signal).Candidate))
}

func TestRelayToOfflineTargetDropsSilently(t *testing.T) {
	registry, _, router, sender := newSignalFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")

	err := router.Relay(ctx, "s1", domain.SignalAnswer, "nobody", json.RawMessage(`{}`), nil)
	assert.NoError(t, err)
	assert.Empty(t, sender.sends)
}

func TestRelayUnknownSender(t *testing.T) {
	_, _, router, _ := newSignalFixture()

	err := router.Relay(context.Background(), "ghost", domain.SignalOffer, "p2", nil, nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRelayToRoomExcludesSender(t *testing.T) {
	registry, rooms, router, sender := newSignalFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")
	announceUser(t, registry, "s3", "p3", "carol")

	for _, sid := range []domain.SessionID{"s1", "s2", "s3"} {
		_, err := rooms.Join(ctx, sid, "g1")
		require.NoError(t, err)
	}
	sender.reset()

	data := json.RawMessage(`{"kind":"renegotiate"}`)
	require.NoError(t, router.RelayToRoom(ctx, "s1", "g1", "offer", data))

	assert.Empty(t, sender.eventsTo("s1", domain.EventGroupSignal))
	for _, sid := range []domain.SessionID{"s2", "s3"} {
		got := sender.eventsTo(sid, domain.EventGroupSignal)
		require.Len(t, got, 1)
		payload := got[0].payload.(roomSignalPayload)
		assert.Equal(t, domain.RoomID("g1"), payload.RoomID)
		assert.Equal(t, "offer", payload.SignalType)
		assert.Equal(t, domain.PeerID("p1"), payload.SenderPeerID)
		assert.JSONEq(t, string(data), string(payload.SignalData))
	}
}

func TestRelayToRoomRequiresMembership(t *testing.T) {
	registry, rooms, router, sender := newSignalFixture()
	ctx := context.Background()

	announceUser(t, registry, "s1", "p1", "alice")
	announceUser(t, registry, "s2", "p2", "bob")

	_, err := rooms.Join(ctx, "s1", "g1")
	require.NoError(t, err)
	sender.reset()

	err = router.RelayToRoom(ctx, "s2", "g1", "offer", nil)
	assert.ErrorIs(t, err, domain.ErrNotRoomMember)
	assert.Empty(t, sender.sends)
}

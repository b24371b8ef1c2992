package ports

import (
	"context"
	"encoding/json"

	"echolink/internal/core/domain"
)

// AnnounceResult describes what an announce changed in the registry.
type AnnounceResult struct {
	// WentOnline is true when this announce carried a userId and the
	// session was not identified before. It is the presence tracker's
	// ONLINE trigger.
	WentOnline bool

	// Superseded is the stale session that held the same peerId or
	// userId without a clean disconnect, if any. Last announce wins;
	// the lifecycle controller drops the stale connection.
	Superseded *domain.Session
}

// Registry maintains the bidirectional session/peer/user mappings.
// Mutated only by announce and release; message and signal handling
// only read it.
type Registry interface {
	// Announce registers or updates the identity of a session.
	// Idempotent for repeated announces of the same session.
	Announce(ctx context.Context, sessionID domain.SessionID, identity domain.Identity) (*AnnounceResult, error)

	// ResolveSession accepts a peerId or userId and returns the live
	// session holding it. Returns domain.ErrSessionNotFound when the
	// target is offline; callers treat that as a routing miss.
	ResolveSession(ctx context.Context, identifier string) (domain.SessionID, error)

	// Session returns the live session by id.
	Session(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error)

	// Release removes every mapping of a session and returns the
	// released session for cleanup broadcasts. A second release of the
	// same session returns domain.ErrSessionNotFound.
	Release(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error)

	// OnlineUsers snapshots the identified sessions, excluding the given
	// session.
	OnlineUsers(ctx context.Context, exclude domain.SessionID) []domain.Identity
}

// Presence derives and broadcasts online/offline transitions from
// registry mutations.
type Presence interface {
	// SessionOnline sends the announcing session its snapshot of online
	// users and, when the announce flipped the user online, broadcasts
	// the status change to everyone else.
	SessionOnline(ctx context.Context, sessionID domain.SessionID, wentOnline bool) error

	// SessionOffline broadcasts the offline status of a released
	// session. A nil or anonymous session broadcasts nothing.
	SessionOffline(ctx context.Context, released *domain.Session)
}

// Rooms manages ephemeral group membership. A room exists only while
// its member set is non-empty.
type Rooms interface {
	// Create joins the caller to the room and persists metadata plus the
	// initial roster, best-effort. Returns the other current members.
	Create(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, name string, initialMembers []domain.UserID) ([]domain.Identity, error)

	// Join adds the session to the room, notifies current members and
	// returns the member list without the joiner. Anonymous sessions are
	// rejected with domain.ErrNotAuthenticated.
	Join(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) ([]domain.Identity, error)

	// Leave removes the session, notifies remaining members and removes
	// the persisted membership record, best-effort.
	Leave(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) error

	// LeaveAll silently removes the session from every room it joined.
	// Used on disconnect; the generic offline broadcast covers it.
	LeaveAll(ctx context.Context, sessionID domain.SessionID) []domain.RoomID

	// Typing broadcasts a typing indicator to the other members,
	// verifying the sender is an identified member of the room first.
	Typing(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, started bool) error

	// IsMember reports current membership.
	IsMember(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) bool

	// BroadcastToRoom delivers an event to every member except the
	// excluded sessions.
	BroadcastToRoom(ctx context.Context, roomID domain.RoomID, event string, payload interface{}, exclude ...domain.SessionID)
}

// SignalRouter relays WebRTC negotiation payloads. Stateless beyond
// the registry lookup; payloads are opaque.
type SignalRouter interface {
	// Relay resolves the target peer or user and delivers the signal.
	// A resolve miss is silently dropped.
	Relay(ctx context.Context, senderSessionID domain.SessionID, signalType domain.SignalType, target string, sdp, candidate json.RawMessage) error

	// RelayToRoom delivers an opaque signal to every other room member.
	RelayToRoom(ctx context.Context, senderSessionID domain.SessionID, roomID domain.RoomID, signalType string, data json.RawMessage) error
}

// MessageRelay delivers chat envelopes and hands them to the storage
// collaborator.
type MessageRelay interface {
	// SendDirect persists then delivers a direct message and always
	// acknowledges the sender, regardless of target presence or storage
	// outcome.
	SendDirect(ctx context.Context, senderSessionID domain.SessionID, target string, content string, msgType domain.MessageType, parentID string) (*domain.Message, error)

	// SendToRoom persists then broadcasts a group message to the whole
	// room, sender included.
	SendToRoom(ctx context.Context, senderSessionID domain.SessionID, roomID domain.RoomID, content string, msgType domain.MessageType, parentID string) (*domain.Message, error)
}

// MetricsRecorder receives operational counters from the core. The
// prometheus collector implements it; a no-op implementation is used
// in tests.
type MetricsRecorder interface {
	RecordSessionConnected()
	RecordSessionDisconnected()
	RecordUserOnline()
	RecordUserOffline()
	RecordRoomCreated()
	RecordRoomDestroyed()
	RecordMessageRelayed(kind string)
	RecordSignalRelayed(signalType string)
	RecordSignalDropped()
	RecordStorageFailure(op string)
}

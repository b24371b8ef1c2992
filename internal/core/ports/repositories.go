package ports

import (
	"context"

	"echolink/internal/core/domain"
)

// MessageStore is the durable message collaborator. Every call is
// asynchronous from the relay's point of view: fallible, bounded by the
// caller's context and never allowed to block delivery.
type MessageStore interface {
	// SaveMessage persists an envelope and returns the assigned id.
	SaveMessage(ctx context.Context, msg *domain.Message) (string, error)

	// DirectMessages returns the conversation between two peers, oldest
	// first, capped at limit.
	DirectMessages(ctx context.Context, a, b domain.PeerID, limit int) ([]*domain.Message, error)

	// RoomMessages returns a room's history, oldest first, capped at
	// limit.
	RoomMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.Message, error)
}

// RoomStore persists room metadata and rosters. Best-effort from the
// core's perspective; an in-memory join never waits for it.
type RoomStore interface {
	SaveRoom(ctx context.Context, room *domain.Room) error
	AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error)
}

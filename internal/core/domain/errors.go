package domain

import "errors"

var (
	// ErrSessionNotFound is the normal outcome of resolving an offline
	// target. Routing treats it as "target offline", never as a failure.
	ErrSessionNotFound = errors.New("session not found")

	ErrNotAuthenticated = errors.New("session has no authenticated user")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotRoomMember    = errors.New("session is not a member of the room")
	ErrEmptyContent     = errors.New("message content is empty")
)

package domain

// SessionID identifies one live transport connection. Assigned by the
// server on upgrade, unique per connection.
type SessionID string

// PeerID is a client-generated identifier that stays stable across
// reconnects of the same logical peer.
type PeerID string

// UserID is an optional authenticated identity, stable across peers.
type UserID string

// RoomID names an ephemeral group of sessions. Caller-supplied, never
// generated by the server.
type RoomID string

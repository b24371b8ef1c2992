package domain

import "time"

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceUpdate is broadcast to other sessions when a user transitions
// between online and offline.
type PresenceUpdate struct {
	UserID   UserID         `json:"userId"`
	PeerID   PeerID         `json:"peerId,omitempty"`
	UserName string         `json:"userName,omitempty"`
	Status   PresenceStatus `json:"status"`
	At       time.Time      `json:"timestamp"`
}

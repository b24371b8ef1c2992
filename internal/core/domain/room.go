package domain

import "time"

// Room is the persisted metadata of a group. The live member set is
// held by the room service only while it is non-empty; this struct is
// what the storage collaborator keeps.
type Room struct {
	ID        RoomID    `json:"roomId"`
	Name      string    `json:"name,omitempty"`
	CreatedBy UserID    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

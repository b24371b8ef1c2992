package domain

import "time"

// MessageType tags the payload kind carried by a message envelope. The
// server never interprets the content itself.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// Message is an in-flight chat envelope. Immutable once constructed;
// ID is populated only after the storage collaborator acknowledges a
// write, and may stay empty when persistence fails.
type Message struct {
	ID           string      `json:"id,omitempty"`
	SenderPeerID PeerID      `json:"senderPeerId"`
	SenderUserID UserID      `json:"senderUserId,omitempty"`
	TargetPeerID PeerID      `json:"targetPeerId,omitempty"`
	RoomID       RoomID      `json:"roomId,omitempty"`
	Content      string      `json:"message"`
	Type         MessageType `json:"type"`
	ParentID     string      `json:"parentMessageId,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Direct reports whether the envelope is addressed to a single peer
// rather than a room.
func (m *Message) Direct() bool {
	return m.RoomID == ""
}

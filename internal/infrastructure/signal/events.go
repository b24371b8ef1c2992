package signal

import (
	"encoding/json"

	"echolink/internal/core/domain"
)

// Event is the envelope for every frame exchanged over the socket.
// Ref is echoed back in ack events so clients can correlate replies.
type Event struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnnouncePayload identifies a freshly connected session.
type AnnouncePayload struct {
	PeerID    string `json:"peerId"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Token     string `json:"token,omitempty"`
}

type DirectMessagePayload struct {
	TargetPeerID    string `json:"targetPeerId"`
	Message         string `json:"message"`
	Type            string `json:"type,omitempty"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
}

// PeerSignalPayload carries WebRTC negotiation data addressed to one peer.
// SDP and Candidate stay opaque, the server never inspects them.
type PeerSignalPayload struct {
	TargetPeerID string          `json:"targetPeerId"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

type GroupPayload struct {
	GroupID        string   `json:"groupId"`
	GroupName      string   `json:"groupName,omitempty"`
	InitialMembers []string `json:"initialMembers,omitempty"`
}

type GroupMessagePayload struct {
	GroupID         string `json:"groupId"`
	Message         string `json:"message"`
	Type            string `json:"type,omitempty"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
}

type GroupSignalPayload struct {
	GroupID    string          `json:"groupId"`
	SignalType string          `json:"signalType"`
	SignalData json.RawMessage `json:"signalData,omitempty"`
}

// AckPayload is the reply for operations that carry a Ref.
type AckPayload struct {
	Success bool              `json:"success"`
	GroupID string            `json:"groupId,omitempty"`
	Members []domain.Identity `json:"members,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

package domain

import "encoding/json"

// SignalType is the kind of WebRTC negotiation payload being relayed.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// Valid reports whether t is one of the closed set of signal kinds.
func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

// Signal is a transient WebRTC negotiation envelope. The SDP/candidate
// data is passed through unexamined and never stored.
type Signal struct {
	Type         SignalType      `json:"signalType"`
	SenderPeerID PeerID          `json:"senderPeerId"`
	SenderUserID UserID          `json:"senderUserId,omitempty"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

package domain

import "time"

// Session is one live connection and the identity it announced.
type Session struct {
	ID          SessionID
	PeerID      PeerID
	UserID      UserID
	UserName    string
	AvatarURL   string
	ConnectedAt time.Time
	AnnouncedAt time.Time
}

// Identified reports whether the session announced an authenticated user.
func (s *Session) Identified() bool {
	return s != nil && s.UserID != ""
}

// Identity returns the announced identity tuple for broadcasts and
// member lists.
func (s *Session) Identity() Identity {
	return Identity{
		PeerID:    s.PeerID,
		UserID:    s.UserID,
		UserName:  s.UserName,
		AvatarURL: s.AvatarURL,
	}
}

// Identity is the public identity tuple of a session, as seen by other
// sessions in presence snapshots and room member lists.
type Identity struct {
	PeerID    PeerID `json:"peerId"`
	UserID    UserID `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

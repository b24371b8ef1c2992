package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// PeerIDRegex validates peer ID format
	PeerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// UserIDRegex validates user ID format
	UserIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_@.-]+$`)

	// RoomIDRegex validates room ID format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidatePeerID validates a client-supplied peer identifier
func ValidatePeerID(peerID string) error {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return fmt.Errorf("peerId is required")
	}
	if len(peerID) > 100 {
		return fmt.Errorf("peerId is too long (max 100 characters)")
	}
	if !PeerIDRegex.MatchString(peerID) {
		return fmt.Errorf("peerId contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateUserID validates an optional user identifier
func ValidateUserID(userID string) error {
	if userID == "" {
		return nil
	}
	if len(userID) > 100 {
		return fmt.Errorf("userId is too long (max 100 characters)")
	}
	if !UserIDRegex.MatchString(userID) {
		return fmt.Errorf("userId contains invalid characters")
	}
	return nil
}

// ValidateRoomID validates a caller-supplied room identifier
func ValidateRoomID(roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("groupId is required")
	}
	if len(roomID) > 100 {
		return fmt.Errorf("groupId is too long (max 100 characters)")
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("groupId contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateUserName validates a display name
func ValidateUserName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > 80 {
		return fmt.Errorf("userName is too long (max 80 characters)")
	}
	return nil
}

package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a random ID with prefix
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// GenerateSessionID generates a unique session ID for a new connection
func GenerateSessionID() string {
	return GenerateID("session")
}

// GenerateMessageID generates a unique message ID
func GenerateMessageID() string {
	return uuid.NewString()
}

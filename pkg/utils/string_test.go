package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeContent(t *testing.T) {
	assert.Equal(t, "hello", SanitizeContent("  hello  "))
	assert.Equal(t, "hello", SanitizeContent("he\x00llo\x07"))
	assert.Equal(t, "line1\nline2", SanitizeContent("line1\nline2"))
	assert.Equal(t, "", SanitizeContent("   \x00\x1b   "))

	long := strings.Repeat("a", MaxContentLength+100)
	assert.Len(t, SanitizeContent(long), MaxContentLength)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "lo...", TruncateString("longer text", 5))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   \t\n"))
	assert.False(t, IsEmpty(" x "))
}

func TestGenerateIDs(t *testing.T) {
	id := GenerateSessionID()
	assert.True(t, strings.HasPrefix(id, "session_"))
	assert.NotEqual(t, id, GenerateSessionID())

	assert.NotEmpty(t, GenerateMessageID())
}

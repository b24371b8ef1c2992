package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePeerID(t *testing.T) {
	assert.NoError(t, ValidatePeerID("peer-1_abc"))
	assert.Error(t, ValidatePeerID(""))
	assert.Error(t, ValidatePeerID("   "))
	assert.Error(t, ValidatePeerID("has spaces"))
	assert.Error(t, ValidatePeerID("semi;colon"))
	assert.Error(t, ValidatePeerID(strings.Repeat("a", 101)))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID(""))
	assert.NoError(t, ValidateUserID("alice@example.com"))
	assert.NoError(t, ValidateUserID("user_1-x"))
	assert.Error(t, ValidateUserID("no spaces allowed"))
	assert.Error(t, ValidateUserID(strings.Repeat("u", 101)))
}

func TestValidateRoomID(t *testing.T) {
	assert.NoError(t, ValidateRoomID("general-1"))
	assert.Error(t, ValidateRoomID(""))
	assert.Error(t, ValidateRoomID("room/with/slashes"))
}

func TestValidateUserName(t *testing.T) {
	assert.NoError(t, ValidateUserName(""))
	assert.NoError(t, ValidateUserName("Alice Liddell"))
	assert.Error(t, ValidateUserName(strings.Repeat("n", 81)))
}

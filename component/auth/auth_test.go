package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthenticator(t *testing.T) {
	users := []AuthUser{
		{User: "user1", Pass: "password1"},
		{User: "user2", Pass: "password2"},
	}

	authenticator := NewAuthenticator(users)
	assert.NotNil(t, authenticator)

	assert.True(t, authenticator.Verify("user1", "password1"))
	assert.True(t, authenticator.Verify("user2", "password2"))
	assert.False(t, authenticator.Verify("user1", "password2"))
	assert.False(t, authenticator.Verify("missing", "password1"))
	assert.ElementsMatch(t, []string{"user1", "user2"}, authenticator.Users())
}

func TestAuthenticatorEmpty(t *testing.T) {
	assert.Nil(t, NewAuthenticator(nil))
	assert.Nil(t, NewAuthenticator([]AuthUser{}))
}

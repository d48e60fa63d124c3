package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("  Ada  ", "Ada@Example.com ", "correct-horse")
	require.NoError(t, err)

	assert.True(t, IsValidUserID(u.ID))
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Zero(t, u.Credits)
	assert.NotEqual(t, "correct-horse", u.Password)
	assert.True(t, u.CheckPassword("correct-horse"))
	assert.False(t, u.CheckPassword("wrong-horse"))
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"short password", "Ada", "ada@example.com", "short"},
		{"invalid email", "Ada", "not-an-email", "correct-horse"},
		{"missing name", "", "ada@example.com", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.userName, tt.email, tt.password)
			assert.Error(t, err)
		})
	}
}

func TestIsValidUserID(t *testing.T) {
	assert.True(t, IsValidUserID(uuid.NewString()))
	assert.False(t, IsValidUserID(""))
	assert.False(t, IsValidUserID("42"))
	assert.False(t, IsValidUserID("zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"))
}

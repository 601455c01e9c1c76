package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	v := NewValidator("secret", "messaging")
	id := uuid.New()

	token, err := v.IssueToken(id, "a@example.com", time.Minute)
	require.NoError(t, err)

	got, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestValidateRejects(t *testing.T) {
	v := NewValidator("secret", "messaging")
	id := uuid.New()

	expired, err := v.IssueToken(id, "", -time.Minute)
	require.NoError(t, err)
	_, err = v.ValidateToken(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewValidator("other", "messaging").IssueToken(id, "", time.Minute)
	require.NoError(t, err)
	_, err = v.ValidateToken(other)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewValidator("secret", "elsewhere").IssueToken(id, "", time.Minute)
	require.NoError(t, err)
	_, err = v.ValidateToken(wrongIssuer)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.ValidateToken("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubject(t *testing.T) {
	id := uuid.New()
	token, err := NewValidator("secret", "").IssueToken(id, "", time.Minute)
	require.NoError(t, err)

	got, err := Subject(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = Subject("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

package main

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/e2ee"
)

func TestKeyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keys.json")
	userID := uuid.New()
	kp, err := e2ee.GenerateKeyPair()
	require.NoError(t, err)

	require.NoError(t, saveKeys(path, userID, kp))

	loaded, err := loadKeys(path, userID)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), loaded.PublicKey())

	_, err = loadKeys(path, uuid.New())
	require.Error(t, err)
}

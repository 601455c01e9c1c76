package e2ee

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	alice, err := NewSession("alice")
	require.NoError(t, err)
	bob, err := NewSession("bob")
	require.NoError(t, err)
	return alice, bob
}

func recipients(sessions ...*Session) []Recipient {
	out := make([]Recipient, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Recipient{UserID: s.UserID(), PublicKey: s.PublicKey()})
	}
	return out
}

func TestEncryptDecryptBothParticipants(t *testing.T) {
	alice, bob := newPair(t)

	env, err := alice.Encrypt("conv-1", []byte("hi"), recipients(alice, bob))
	require.NoError(t, err)
	assert.Equal(t, Algorithm, env.Metadata.Algorithm)
	assert.Equal(t, KeyEncapsulation, env.Metadata.KeyEncapsulation)
	assert.Equal(t, KeySize, env.Metadata.KeySize)
	assert.Len(t, env.EncapsulatedKeys, 2)

	got, err := bob.Decrypt("conv-1", env)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	got, err = alice.Decrypt("conv-1", env)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestConversationKeyIsReused(t *testing.T) {
	alice, bob := newPair(t)

	first, err := alice.Encrypt("conv-1", []byte("one"), recipients(bob))
	require.NoError(t, err)
	_, err = bob.Decrypt("conv-1", first)
	require.NoError(t, err)

	// bob replies under the key learned from alice
	reply, err := bob.Encrypt("conv-1", []byte("two"), recipients(alice))
	require.NoError(t, err)
	delete(reply.EncapsulatedKeys, "alice")

	got, err := alice.Decrypt("conv-1", reply)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestTamperedCiphertextFails(t *testing.T) {
	alice, bob := newPair(t)
	env, err := alice.Encrypt("conv-1", []byte("hello there"), recipients(bob))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)
	raw[0] ^= 0x01
	env.Ciphertext = base64.StdEncoding.EncodeToString(raw)

	_, err = bob.Decrypt("conv-1", env)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestWrongConversationFails(t *testing.T) {
	alice, bob := newPair(t)
	env, err := alice.Encrypt("conv-1", []byte("hi"), recipients(bob))
	require.NoError(t, err)

	_, err = bob.Decrypt("conv-2", env)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestOutsiderCannotDecrypt(t *testing.T) {
	alice, bob := newPair(t)
	eve, err := NewSession("eve")
	require.NoError(t, err)

	env, err := alice.Encrypt("conv-1", []byte("hi"), recipients(bob))
	require.NoError(t, err)

	_, err = eve.Decrypt("conv-1", env)
	require.ErrorIs(t, err, ErrDecryptionFailed)

	env.EncapsulatedKeys["eve"] = env.EncapsulatedKeys["bob"]
	_, err = eve.Decrypt("conv-1", env)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFixedKeyEnvelopeRejected(t *testing.T) {
	_, bob := newPair(t)
	env := Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString([]byte("plain text")),
		Nonce:      base64.StdEncoding.EncodeToString(make([]byte, 12)),
		Metadata:   Metadata{Algorithm: "AES-GCM", UseFixedKey: true},
	}

	_, err := bob.Decrypt("conv-1", env)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestMissingRecipientKey(t *testing.T) {
	alice, _ := newPair(t)

	_, err := alice.Encrypt("conv-1", []byte("hi"), []Recipient{{UserID: "carol"}})
	require.ErrorIs(t, err, ErrMissingRecipientKey)
}

func TestParsePublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = ParsePublicKey(kp.PublicKey())
	require.NoError(t, err)

	_, err = ParsePublicKey("not base64!")
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePublicKey(base64.StdEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePublicKey(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestKeyPairRestore(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	restored, err := KeyPairFromPrivate(kp.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), restored.PublicKey())

	alice := NewSessionWithKeyPair("alice", kp)
	env, err := alice.Encrypt("conv-1", []byte("hi"), nil)
	require.NoError(t, err)

	got, err := NewSessionWithKeyPair("alice", restored).Decrypt("conv-1", env)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	_, err = KeyPairFromPrivate("c2hvcnQ=")
	require.Error(t, err)
}

func TestAdoptSharesKeyAcrossSessions(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := NewSession("bob")
	require.NoError(t, err)

	first := NewSessionWithKeyPair("alice", kp)
	env1, err := first.Encrypt("conv-1", []byte("one"), recipients(bob))
	require.NoError(t, err)

	second := NewSessionWithKeyPair("alice", kp)
	assert.False(t, second.HasKey("conv-1"))
	require.NoError(t, second.Adopt("conv-1", env1))
	assert.True(t, second.HasKey("conv-1"))

	env2, err := second.Encrypt("conv-1", []byte("two"), recipients(bob))
	require.NoError(t, err)

	key1, err := bob.openKey("conv-1", env1)
	require.NoError(t, err)
	key2, err := bob.openKey("conv-1", env2)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestAdoptRejectsForeignEnvelope(t *testing.T) {
	alice, bob := newPair(t)
	carol, err := NewSession("carol")
	require.NoError(t, err)

	env, err := alice.Encrypt("conv-1", []byte("one"), recipients(bob))
	require.NoError(t, err)

	require.ErrorIs(t, carol.Adopt("conv-1", env), ErrDecryptionFailed)
	assert.False(t, carol.HasKey("conv-1"))
}

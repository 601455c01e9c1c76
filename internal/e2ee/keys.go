package e2ee

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// PublicKeyAlgorithm names the long-term key type published to the server.
const PublicKeyAlgorithm = "X25519"

var ErrInvalidPublicKey = errors.New("invalid public key")

// KeyPair is a long-term X25519 identity used to open encapsulated conversation keys.
type KeyPair struct {
	public  [32]byte
	private [32]byte
}

// GenerateKeyPair creates a fresh X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	var kp KeyPair
	if _, err := rand.Read(kp.private[:]); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(kp.public[:], pub)
	return &kp, nil
}

// PublicKey returns the base64 form stored on participant rows.
func (k *KeyPair) PublicKey() string {
	return base64.StdEncoding.EncodeToString(k.public[:])
}

// ParsePublicKey decodes and validates a base64 X25519 public key.
// Low-order points are rejected since they would yield an all-zero shared secret.
func ParsePublicKey(encoded string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != curve25519.PointSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPublicKey, curve25519.PointSize, len(raw))
	}

	var scalar [32]byte
	if _, err := rand.Read(scalar[:]); err != nil {
		return nil, err
	}
	if _, err := curve25519.X25519(scalar[:], raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// PrivateKey returns the base64 private scalar for local storage.
func (k *KeyPair) PrivateKey() string {
	return base64.StdEncoding.EncodeToString(k.private[:])
}

// KeyPairFromPrivate restores a key pair saved with PrivateKey.
func KeyPairFromPrivate(encoded string) (*KeyPair, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != curve25519.ScalarSize {
		return nil, fmt.Errorf("private key: want %d bytes, got %d", curve25519.ScalarSize, len(raw))
	}
	var kp KeyPair
	copy(kp.private[:], raw)
	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(kp.public[:], pub)
	return &kp, nil
}

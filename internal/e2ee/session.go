// Package e2ee encrypts message content under per-conversation keys that are
// encapsulated to each participant's long-term X25519 public key.
package e2ee

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"
)

const (
	Algorithm        = "XChaCha20-Poly1305"
	KeyEncapsulation = "X25519-SealedBox"
	KeySize          = 256
)

var (
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrMissingRecipientKey = errors.New("recipient has no public key")
)

// Metadata describes how an envelope was produced.
type Metadata struct {
	Algorithm        string `json:"algorithm"`
	KeyEncapsulation string `json:"keyEncapsulation,omitempty"`
	KeySize          int    `json:"keySize,omitempty"`
	UseFixedKey      bool   `json:"useFixedKey,omitempty"`
}

// Envelope is everything a recipient needs to recover the plaintext.
type Envelope struct {
	Ciphertext       string
	Nonce            string
	EncapsulatedKeys map[string]string
	Metadata         Metadata
}

// Recipient is a conversation participant and the public key on its participant row.
type Recipient struct {
	UserID    string
	PublicKey string
}

// Session holds one user's key pair and the conversation keys it has learned.
type Session struct {
	userID string
	keys   *KeyPair

	mu      sync.Mutex
	keyring map[string][]byte
}

// NewSession creates a session with a freshly generated key pair.
func NewSession(userID string) (*Session, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return NewSessionWithKeyPair(userID, kp), nil
}

func NewSessionWithKeyPair(userID string, kp *KeyPair) *Session {
	return &Session{userID: userID, keys: kp, keyring: make(map[string][]byte)}
}

func (s *Session) UserID() string { return s.userID }

// PublicKey returns the session's base64 public key.
func (s *Session) PublicKey() string { return s.keys.PublicKey() }

// Encrypt seals plaintext under the conversation key and encapsulates that key
// to every recipient. The session's own user is always included.
func (s *Session) Encrypt(conversationID string, plaintext []byte, recipients []Recipient) (Envelope, error) {
	pubs := make(map[string]*[32]byte, len(recipients)+1)
	for _, r := range recipients {
		if r.UserID == s.userID {
			continue
		}
		if r.PublicKey == "" {
			return Envelope{}, fmt.Errorf("%w: %s", ErrMissingRecipientKey, r.UserID)
		}
		pub, err := ParsePublicKey(r.PublicKey)
		if err != nil {
			return Envelope{}, fmt.Errorf("recipient %s: %w", r.UserID, err)
		}
		pubs[r.UserID] = pub
	}
	pubs[s.userID] = &s.keys.public

	key, err := s.conversationKey(conversationID)
	if err != nil {
		return Envelope{}, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return Envelope{}, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, []byte(conversationID))

	encapsulated := make(map[string]string, len(pubs))
	for userID, pub := range pubs {
		sealed, err := box.SealAnonymous(nil, key, pub, rand.Reader)
		if err != nil {
			return Envelope{}, fmt.Errorf("encapsulate key for %s: %w", userID, err)
		}
		encapsulated[userID] = base64.StdEncoding.EncodeToString(sealed)
	}

	return Envelope{
		Ciphertext:       base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:            base64.StdEncoding.EncodeToString(nonce),
		EncapsulatedKeys: encapsulated,
		Metadata: Metadata{
			Algorithm:        Algorithm,
			KeyEncapsulation: KeyEncapsulation,
			KeySize:          KeySize,
		},
	}, nil
}

// Decrypt recovers the plaintext of an envelope sent to conversationID.
// Any failure wraps ErrDecryptionFailed.
func (s *Session) Decrypt(conversationID string, env Envelope) ([]byte, error) {
	if env.Metadata.UseFixedKey {
		return nil, fmt.Errorf("%w: fixed-key envelopes are not accepted", ErrDecryptionFailed)
	}
	if env.Metadata.Algorithm != Algorithm {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrDecryptionFailed, env.Metadata.Algorithm)
	}

	key, err := s.openKey(conversationID, env)
	if err != nil {
		return nil, err
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrDecryptionFailed, err)
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: nonce size %d", ErrDecryptionFailed, len(nonce))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrDecryptionFailed, err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(conversationID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	s.remember(conversationID, key)
	return plaintext, nil
}

// HasKey reports whether the session already holds the key of conversationID.
func (s *Session) HasKey(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keyring[conversationID]
	return ok
}

// Adopt learns the conversation key from an envelope already encapsulated to
// this user, so later sends reuse it instead of starting a new key. The
// envelope must decrypt under the recovered key. A key already held is kept.
func (s *Session) Adopt(conversationID string, env Envelope) error {
	_, err := s.Decrypt(conversationID, env)
	return err
}

func (s *Session) conversationKey(conversationID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keyring[conversationID]; ok {
		return key, nil
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	s.keyring[conversationID] = key
	return key, nil
}

func (s *Session) openKey(conversationID string, env Envelope) ([]byte, error) {
	encoded, ok := env.EncapsulatedKeys[s.userID]
	if !ok {
		s.mu.Lock()
		key, cached := s.keyring[conversationID]
		s.mu.Unlock()
		if !cached {
			return nil, fmt.Errorf("%w: no key encapsulated for %s", ErrDecryptionFailed, s.userID)
		}
		return key, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: encapsulated key: %v", ErrDecryptionFailed, err)
	}
	key, ok := box.OpenAnonymous(nil, sealed, &s.keys.public, &s.keys.private)
	if !ok || len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: cannot open encapsulated key", ErrDecryptionFailed)
	}
	return key, nil
}

func (s *Session) remember(conversationID string, key []byte) {
	s.mu.Lock()
	if _, ok := s.keyring[conversationID]; !ok {
		s.keyring[conversationID] = key
	}
	s.mu.Unlock()
}

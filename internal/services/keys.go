package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/e2ee"
	"messaging-service/internal/repositories"
)

// KeyService publishes users' long-term public keys.
type KeyService struct {
	keys repositories.KeyRepository
}

func NewKeyService(keys repositories.KeyRepository) *KeyService {
	return &KeyService{keys: keys}
}

// StorePublicKey validates an X25519 key and copies it to the user's participant rows.
// It returns how many participant rows now carry the key.
func (s *KeyService) StorePublicKey(ctx context.Context, userID uuid.UUID, publicKey string) (int64, error) {
	if userID == uuid.Nil {
		return 0, ErrNotAuthenticated
	}
	if _, err := e2ee.ParsePublicKey(publicKey); err != nil {
		return 0, invalid(err.Error())
	}

	updated, err := s.keys.StorePublicKey(ctx, userID, publicKey, e2ee.PublicKeyAlgorithm)
	if err != nil {
		return 0, storeErr(err)
	}
	log.Info().Str("user_id", userID.String()).Int64("participant_rows", updated).Msg("public key stored")
	return updated, nil
}

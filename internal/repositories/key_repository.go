package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// KeyRepository stores users' long-term public keys.
type KeyRepository interface {
	StorePublicKey(ctx context.Context, userID uuid.UUID, publicKey, algorithm string) (int64, error)
}

// KeyRepo is a sqlx implementation of KeyRepository.
type KeyRepo struct {
	db *sqlx.DB
}

// NewKeyRepo constructs a KeyRepo.
func NewKeyRepo(db *sqlx.DB) *KeyRepo {
	return &KeyRepo{db: db}
}

// StorePublicKey records the user's current key and copies it onto every participant row
// the user holds. It returns the number of participant rows updated.
func (r *KeyRepo) StorePublicKey(ctx context.Context, userID uuid.UUID, publicKey, algorithm string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO user_keys (user_id, public_key, algorithm, updated_at) VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id) DO UPDATE SET public_key = EXCLUDED.public_key, algorithm = EXCLUDED.algorithm, updated_at = NOW()`,
		userID, publicKey, algorithm); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE conversation_participants SET public_key=$2 WHERE user_id=$1`, userID, publicKey)
	if err != nil {
		return 0, err
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// Directory resolves users known to the identity provider.
type Directory interface {
	FindUserByEmail(ctx context.Context, email string) (models.UserProfile, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error)
}

// NormalizeEmail trims and lowercases an address before lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SQLDirectory looks users up through the find_user_by_email SQL function.
type SQLDirectory struct {
	db *sqlx.DB
}

func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

func (d *SQLDirectory) FindUserByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return models.UserProfile{}, ErrUserNotFound
	}

	var user models.UserProfile
	err := d.db.GetContext(ctx, &user, `SELECT f.id, f.email, f.full_name, f.avatar_url, k.public_key
        FROM find_user_by_email($1) f
        LEFT JOIN user_keys k ON k.user_id = f.id
        LIMIT 1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrUserNotFound
	}
	return user, err
}

func (d *SQLDirectory) FindUserByID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	var user models.UserProfile
	err := d.db.GetContext(ctx, &user, `SELECT u.id, u.email, COALESCE(u.full_name, '') AS full_name,
            COALESCE(u.avatar_url, '') AS avatar_url, k.public_key
        FROM users u
        LEFT JOIN user_keys k ON k.user_id = u.id
        WHERE u.id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrUserNotFound
	}
	return user, err
}

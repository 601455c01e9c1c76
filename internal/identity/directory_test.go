package identity

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@example.com", NormalizeEmail("  Bob@Example.COM "))
}

func TestFindUserByEmailNormalizesOnce(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	dir := NewSQLDirectory(sqlx.NewDb(raw, "postgres"))
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM find_user_by_email($1)`)).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "avatar_url", "public_key"}).
			AddRow(id.String(), "bob@example.com", "Bob", "", "cHVibGlj"))

	user, err := dir.FindUserByEmail(context.Background(), " BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	require.NotNil(t, user.PublicKey)
	assert.Equal(t, "cHVibGlj", *user.PublicKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByEmailNotFound(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	dir := NewSQLDirectory(sqlx.NewDb(raw, "postgres"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM find_user_by_email($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "avatar_url", "public_key"}))

	_, err = dir.FindUserByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = dir.FindUserByEmail(context.Background(), "   ")
	require.ErrorIs(t, err, ErrUserNotFound)
}

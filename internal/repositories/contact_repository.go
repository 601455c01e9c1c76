package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrContactExists   = errors.New("contact already exists")
)

const contactColumns = `id, user_id, contact_user_id, status, created_at, updated_at`

// ContactRepository abstracts contact persistence.
type ContactRepository interface {
	ListContacts(ctx context.Context, userID uuid.UUID, status models.ContactStatus) ([]models.Contact, error)
	AddContact(ctx context.Context, userID, contactUserID uuid.UUID) (models.Contact, error)
	UpdateStatus(ctx context.Context, contactID, ownerID uuid.UUID, status models.ContactStatus) (models.Contact, error)
	DeleteContact(ctx context.Context, contactID, ownerID uuid.UUID) error
}

// ContactRepo is a sqlx implementation of ContactRepository.
type ContactRepo struct {
	db *sqlx.DB
}

// NewContactRepo constructs a ContactRepo.
func NewContactRepo(db *sqlx.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// ListContacts returns the owner's contacts, optionally filtered by status.
func (r *ContactRepo) ListContacts(ctx context.Context, userID uuid.UUID, status models.ContactStatus) ([]models.Contact, error) {
	builder := psql.Select(contactColumns).
		From("contacts").
		Where("user_id = ?", userID).
		OrderBy("created_at DESC")
	if status != "" {
		builder = builder.Where("status = ?", string(status))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	contacts := []models.Contact{}
	err = r.db.SelectContext(ctx, &contacts, query, args...)
	return contacts, err
}

// AddContact inserts a pending contact.
func (r *ContactRepo) AddContact(ctx context.Context, userID, contactUserID uuid.UUID) (models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, `INSERT INTO contacts (user_id, contact_user_id, status) VALUES ($1, $2, 'pending')
        ON CONFLICT (user_id, contact_user_id) DO NOTHING
        RETURNING `+contactColumns, userID, contactUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, ErrContactExists
	}
	return contact, err
}

// UpdateStatus changes the status of a contact owned by ownerID.
func (r *ContactRepo) UpdateStatus(ctx context.Context, contactID, ownerID uuid.UUID, status models.ContactStatus) (models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, `UPDATE contacts SET status=$3, updated_at=NOW() WHERE id=$1 AND user_id=$2 RETURNING `+contactColumns, contactID, ownerID, string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, ErrContactNotFound
	}
	return contact, err
}

// DeleteContact removes a contact owned by ownerID.
func (r *ContactRepo) DeleteContact(ctx context.Context, contactID, ownerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=$1 AND user_id=$2`, contactID, ownerID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrContactNotFound
	}
	return nil
}

package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/e2ee"
	"messaging-service/internal/identity"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// ContactService manages the caller's address book.
type ContactService struct {
	contacts  repositories.ContactRepository
	directory identity.Directory
	notify    notifier
	retry     RetryPolicy
}

func NewContactService(contacts repositories.ContactRepository, directory identity.Directory, audit *telemetry.AuditEmitter, retry RetryPolicy) *ContactService {
	return &ContactService{
		contacts:  contacts,
		directory: directory,
		notify:    notifier{audit: audit},
		retry:     retry,
	}
}

// ListContacts fails open like the other list reads.
func (s *ContactService) ListContacts(ctx context.Context, userID uuid.UUID, status models.ContactStatus) ([]models.Contact, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	if status != "" && !validStatus(status) {
		return nil, invalid("unknown contact status")
	}

	var contacts []models.Contact
	err := s.retry.read(ctx, "list_contacts", func() error {
		var err error
		contacts, err = s.contacts.ListContacts(ctx, userID, status)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("listing contacts failed, returning empty list")
		return []models.Contact{}, nil
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return contacts, nil
}

// FindUserByEmail performs one deterministic lookup of the normalised address.
func (s *ContactService) FindUserByEmail(ctx context.Context, userID uuid.UUID, email string) (models.UserProfile, error) {
	if userID == uuid.Nil {
		return models.UserProfile{}, ErrNotAuthenticated
	}
	email = identity.NormalizeEmail(email)
	if email == "" {
		return models.UserProfile{}, invalid("email is required")
	}

	user, err := s.directory.FindUserByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		return models.UserProfile{}, ErrUserNotFound
	}
	if err != nil {
		return models.UserProfile{}, storeErr(err)
	}
	if user.PublicKey != nil && *user.PublicKey != "" {
		user.PublicKeyAlgorithm = e2ee.PublicKeyAlgorithm
	}
	return user, nil
}

// AddContact creates a pending contact. Users cannot add themselves.
func (s *ContactService) AddContact(ctx context.Context, userID, contactUserID uuid.UUID) (models.Contact, error) {
	if userID == uuid.Nil {
		return models.Contact{}, ErrNotAuthenticated
	}
	if contactUserID == uuid.Nil {
		return models.Contact{}, invalid("contact_user_id is required")
	}
	if contactUserID == userID {
		return models.Contact{}, invalid("you can't add yourself as a contact")
	}

	contact, err := s.contacts.AddContact(ctx, userID, contactUserID)
	if errors.Is(err, repositories.ErrContactExists) {
		return models.Contact{}, ErrContactExists
	}
	if err != nil {
		return models.Contact{}, storeErr(err)
	}
	s.notify.emit(ctx, observability.EventContactAdded, userID, "contact added", map[string]any{
		"contact_id": contact.ID,
	})
	return contact, nil
}

// UpdateContactStatus accepts or blocks a contact owned by the caller.
func (s *ContactService) UpdateContactStatus(ctx context.Context, userID, contactID uuid.UUID, status models.ContactStatus) (models.Contact, error) {
	if userID == uuid.Nil {
		return models.Contact{}, ErrNotAuthenticated
	}
	if status != models.ContactAccepted && status != models.ContactBlocked {
		return models.Contact{}, invalid("status must be accepted or blocked")
	}

	contact, err := s.contacts.UpdateStatus(ctx, contactID, userID, status)
	if errors.Is(err, repositories.ErrContactNotFound) {
		return models.Contact{}, ErrContactNotFound
	}
	if err != nil {
		return models.Contact{}, storeErr(err)
	}
	return contact, nil
}

func (s *ContactService) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}
	err := s.contacts.DeleteContact(ctx, contactID, userID)
	if errors.Is(err, repositories.ErrContactNotFound) {
		return ErrContactNotFound
	}
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func validStatus(status models.ContactStatus) bool {
	switch status {
	case models.ContactPending, models.ContactAccepted, models.ContactBlocked:
		return true
	}
	return false
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactStatus is the state of a contact relationship.
type ContactStatus string

const (
	ContactPending  ContactStatus = "pending"
	ContactAccepted ContactStatus = "accepted"
	ContactBlocked  ContactStatus = "blocked"
)

// Contact is an owner -> target relationship. It is not symmetric.
type Contact struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	ContactUserID uuid.UUID     `db:"contact_user_id" json:"contact_user_id"`
	Status        ContactStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// UserProfile is the identity directory view of a user.
type UserProfile struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Email              string    `db:"email" json:"email,omitempty"`
	FullName           string    `db:"full_name" json:"full_name,omitempty"`
	AvatarURL          string    `db:"avatar_url" json:"avatar_url,omitempty"`
	PublicKey          *string   `db:"public_key" json:"public_key,omitempty"`
	PublicKeyAlgorithm string    `db:"-" json:"publicKeyAlgorithm,omitempty"`
}

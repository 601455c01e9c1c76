package services

import "errors"

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNotAParticipant      = errors.New("not a participant of this conversation")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyParticipant   = errors.New("user is already a participant")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrContactNotFound      = errors.New("contact not found")
	ErrContactExists        = errors.New("contact already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
)

func invalid(reason string) error {
	return &argumentError{reason: reason}
}

type argumentError struct {
	reason string
}

func (e *argumentError) Error() string { return e.reason }

func (e *argumentError) Unwrap() error { return ErrInvalidArgument }

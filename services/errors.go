package services

import (
	"errors"
	"strings"

	"maternar/store"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access denied")
	ErrTooManyAttempts    = errors.New("too many login attempts, please try again later")
)

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is a user-facing input error. It is never logged as a
// failure.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func NewValidationError(msg string, flds ...FieldError) error {
	return &ValidationError{Message: msg, Fields: flds}
}

func (err *ValidationError) Error() string {
	return err.Message
}

// Kind is the category of an error as reported to clients.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindRateLimited
)

const genericFailure = "something went wrong, please try again"

// Classify maps err onto the client-facing taxonomy. Internal errors get a
// generic message; their details belong in the logs only.
func Classify(err error) (Kind, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return KindValidation, verr.Message
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrWrongPassword):
		return KindValidation, err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthenticated, ErrInvalidCredentials.Error()
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated, ErrUnauthenticated.Error()
	case errors.Is(err, ErrForbidden):
		return KindForbidden, ErrForbidden.Error()
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound, ErrUserNotFound.Error()
	case errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		return KindNotFound, ErrNotFound.Error()
	case errors.Is(err, ErrTooManyAttempts):
		return KindRateLimited, ErrTooManyAttempts.Error()
	default:
		return KindInternal, genericFailure
	}
}

// PublicMessage returns the message a client may see for err.
func PublicMessage(err error) string {
	_, msg := Classify(err)
	return msg
}

// notFound converts the store sentinel into the service one.
func notFound(err error, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package shared

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrNoSociety occurs when a request needs a society and the session has none.
	ErrNoSociety = errors.New("no society selected")
	// ErrNotMember occurs when a user switches to a society they do not belong to.
	ErrNotMember = errors.New("not a member of this society")
)

// SafeMessager is implemented by errors whose message can be shown to users.
type SafeMessager interface {
	SafeMessage() string
}

// GenericFailureMessage is shown for failures that carry no user-facing text.
const GenericFailureMessage = "Something went wrong. Please try again."

// UserSafeMessage returns text suitable for a flash message or inline form error.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var safe SafeMessager
	if errors.As(err, &safe) {
		return safe.SafeMessage()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrNotFound):
		return "The requested item no longer exists."
	case errors.Is(err, ErrNoSociety):
		return "Select a society to continue."
	case errors.Is(err, ErrNotMember):
		return "You do not have access to that society."
	default:
		return GenericFailureMessage
	}
}

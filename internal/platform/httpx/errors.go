// Package httpx writes JSON and RFC7807 problem responses.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors the JSON endpoints wrap before responding.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// safeMessager is implemented by errors that carry text fit for end users.
type safeMessager interface {
	SafeMessage() string
}

// RespondError maps errors to RFC7807 problem documents. Unclassified errors
// become a 500 whose detail is only filled from a SafeMessage.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		var safe safeMessager
		detail := ""
		if errors.As(err, &safe) {
			detail = safe.SafeMessage()
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", detail)
	}
}

package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound      = shared.ErrNotFound
	ErrConflict      = shared.ErrConflict
	ErrInvalidState  = shared.ErrInvalidState
	ErrValidation    = shared.ErrValidation
	ErrForbidden     = shared.ErrForbidden
	ErrUnprocessable = shared.ErrUnprocessable
)

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Internal errors do not
// leak their message.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		Problem(w, status, http.StatusText(status), "")
		return
	}
	Problem(w, status, http.StatusText(status), err.Error())
}

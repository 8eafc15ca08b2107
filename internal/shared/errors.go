package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the actor lacks the privilege for an action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the request collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates the action is not allowed in the resource's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnprocessable indicates well-formed input that cannot be processed as a business rule.
	ErrUnprocessable = errors.New("unprocessable")
)

package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrBookUnavailable    = errors.New("book is not available")
	ErrAlreadyReturned    = errors.New("lending is already returned")
	ErrNotActive          = errors.New("lending is not active")
	ErrBookLent           = errors.New("book has an active lending")
	ErrUserHasLendings    = errors.New("user still has lendings")
	ErrConflict           = errors.New("duplicate value for a unique field")
	ErrBadDateRange       = errors.New("end date must be after start date and in the future")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type ValidationErrorResponse struct {
	Message string `json:"message"`
	Errors  struct {
		AdditionalProperties string `json:"additionalProperties"`
	} `json:"errors"`
}

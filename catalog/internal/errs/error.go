package errs

import (
	"errors"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("book with this isbn already exists")
)

type ValidationErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

package errs

import (
	"errors"
)

var (
	ErrNotFound     = errors.New("book not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrStore        = errors.New("store failure")
)

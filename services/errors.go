package services

import "errors"

// Sentinel errors mapped to HTTP status codes by the controllers.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("already exists")
)

package model

import "errors"

// Error kinds. Package-level sentinel errors wrap one of these so callers
// can branch either on the specific error or on its kind with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrStateConflict    = errors.New("state conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")
)

package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ErrForbidden marks upstream sources that refuse access to a resource.
var ErrForbidden = errors.New("forbidden")

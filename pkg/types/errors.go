package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so the HTTP
// layer can pick a status code with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

var (
	ErrInvalidSlug           = fmt.Errorf("%w: slug must be a-z, 0-9, _", ErrValidation)
	ErrInvalidStatus         = fmt.Errorf("%w: status must be pending, fulfilled or rejected", ErrValidation)
	ErrSlugTaken             = fmt.Errorf("%w: category slug already exists", ErrConflict)
	ErrSerialTaken           = fmt.Errorf("%w: serial already exists", ErrConflict)
	ErrActiveAssignment      = fmt.Errorf("%w: active assignment exists, end it first", ErrConflict)
	ErrAccessoryTypeTaken    = fmt.Errorf("%w: accessory type already exists", ErrConflict)
	ErrLicenseTypeTaken      = fmt.Errorf("%w: license type already exists", ErrConflict)
	ErrCategoryNotFound      = fmt.Errorf("category %w", ErrNotFound)
	ErrItemNotFound          = fmt.Errorf("item %w", ErrNotFound)
	ErrEmployeeNotFound      = fmt.Errorf("employee %w", ErrNotFound)
	ErrRequestNotFound       = fmt.Errorf("request %w", ErrNotFound)
	ErrAccessoryTypeNotFound = fmt.Errorf("accessory type %w", ErrNotFound)
	ErrLicenseTypeNotFound   = fmt.Errorf("license type %w", ErrNotFound)
)

// Invalid builds a validation error carrying a caller-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

package device

import (
	"errors"
	"strings"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrInvalidDevice) {
//	    // tell the user which field is missing
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist in the collection.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidEvent is returned when a peer event is malformed.
	ErrInvalidEvent = errors.New("device: invalid event")
)

// FieldError describes one failing field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned when a record fails local validation.
// It is raised before any request reaches the backend.
type ValidationError struct {
	Fields []FieldError
}

// Error implements error.
func (e *ValidationError) Error() string {
	return ErrInvalidDevice.Error() + ": " + e.Summary()
}

// Summary lists the failing fields, e.g. "name is required; serialNumber is too long".
func (e *ValidationError) Summary() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// Is reports whether target is ErrInvalidDevice.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDevice
}

// Has reports whether the named field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

package device

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Validation constants.
const (
	maxNameLength   = 100
	maxSerialLength = 64
)

// maintenanceLayouts are the ISO-8601 forms accepted for LastMaintenance on
// create. time.Parse accepts fractional seconds after a seconds field even
// when the layout has none.
var maintenanceLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Field names reported in FieldError.
const (
	FieldID              = "id"
	FieldName            = "name"
	FieldSerialNumber    = "serialNumber"
	FieldLastMaintenance = "lastMaintenance"
)

// ValidateDraft checks the fields a user must fill in before a create.
// Returns a *ValidationError listing every failure, or nil.
func ValidateDraft(d Device) error {
	fields := requiredErrors(d)
	if d.LastMaintenance != "" && !validTimestamp(d.LastMaintenance) {
		fields = append(fields, FieldError{Field: FieldLastMaintenance, Message: "must be an ISO-8601 date or timestamp"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateRecord checks a full record before an update: a non-empty ID plus
// the required fields. LastMaintenance is passed through as the backend
// served it.
func ValidateRecord(d Device) error {
	var fields []FieldError
	if strings.TrimSpace(d.ID) == "" {
		fields = append(fields, FieldError{Field: FieldID, Message: "is required"})
	}
	fields = append(fields, requiredErrors(d)...)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func requiredErrors(d Device) []FieldError {
	var fields []FieldError

	switch name := strings.TrimSpace(d.Name); {
	case name == "":
		fields = append(fields, FieldError{Field: FieldName, Message: "is required"})
	case utf8.RuneCountInString(name) > maxNameLength:
		fields = append(fields, FieldError{Field: FieldName, Message: "is too long"})
	}

	switch serial := strings.TrimSpace(d.SerialNumber); {
	case serial == "":
		fields = append(fields, FieldError{Field: FieldSerialNumber, Message: "is required"})
	case utf8.RuneCountInString(serial) > maxSerialLength:
		fields = append(fields, FieldError{Field: FieldSerialNumber, Message: "is too long"})
	}

	return fields
}

func validTimestamp(s string) bool {
	for _, layout := range maintenanceLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Normalize trims surrounding whitespace from user-entered text fields.
func Normalize(d Device) Device {
	d.Name = strings.TrimSpace(d.Name)
	d.SerialNumber = strings.TrimSpace(d.SerialNumber)
	d.LastMaintenance = strings.TrimSpace(d.LastMaintenance)
	return d
}

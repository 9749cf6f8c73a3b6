package journal

import "errors"

// Domain-specific errors for the journal.
var (
	// ErrInvalidKind is returned when an entry has an unknown kind.
	ErrInvalidKind = errors.New("journal: invalid entry kind")

	// ErrDeviceIDRequired is returned when an entry has no device id.
	ErrDeviceIDRequired = errors.New("journal: device id is required")
)

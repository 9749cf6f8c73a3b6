package provision

import "errors"

// Domain-specific errors for provisioning.
var (
	// ErrRejected is returned when the server refuses the registration (400).
	ErrRejected = errors.New("provision: registration rejected")

	// ErrRegistrationFailed covers transport errors and unexpected statuses.
	ErrRegistrationFailed = errors.New("provision: registration failed")

	// ErrNoMAC is returned when the interface has no hardware address.
	ErrNoMAC = errors.New("provision: interface has no hardware address")
)

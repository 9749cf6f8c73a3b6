package bridge

import "errors"

// Domain-specific errors for the bridge.
var (
	// ErrUnknownDeviceType is returned for a device type with no vocabulary.
	ErrUnknownDeviceType = errors.New("bridge: unknown device type")

	// ErrUnknownMatchMode is returned for an unsupported command match mode.
	ErrUnknownMatchMode = errors.New("bridge: unknown match mode")
)

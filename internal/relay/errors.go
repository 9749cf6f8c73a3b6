package relay

import "errors"

// Domain errors for the relay package.
var (
	// ErrUnknownDriver is returned when relay.driver names no known driver.
	ErrUnknownDriver = errors.New("relay: unknown driver")

	// ErrPinNotFound is returned when the GPIO line does not exist on this board.
	ErrPinNotFound = errors.New("relay: GPIO pin not found")

	// ErrUnsupported is returned when a hardware driver is requested on a
	// platform that cannot provide it.
	ErrUnsupported = errors.New("relay: driver not supported on this platform")

	// ErrReleased is returned when the relay is used after Release.
	ErrReleased = errors.New("relay: driver released")
)

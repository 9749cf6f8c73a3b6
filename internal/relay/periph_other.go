//go:build !linux

package relay

// PeriphPin is unavailable outside linux.
type PeriphPin struct{ MemoryPin }

// OpenPeriph always fails on this platform; use relay.driver: memory.
func OpenPeriph(pin int) (*PeriphPin, error) {
	return nil, ErrUnsupported
}

package relay

import (
	"fmt"
	"sync"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
)

// Level is the electrical level of the output pin.
type Level bool

// Pin levels.
const (
	Low  Level = false
	High Level = true
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Driver sets the raw level of a single output pin.
type Driver interface {
	// Set drives the pin to the given level.
	Set(level Level) error

	// Level returns the last level written.
	Level() Level

	// Close releases the pin.
	Close() error
}

// Relay wraps a Driver with the board's polarity.
//
// Thread Safety: All methods are safe for concurrent use.
type Relay struct {
	driver     Driver
	activeHigh bool

	mu       sync.Mutex
	released bool
}

// New wraps drv and drives it to the configured initial state.
//
// Parameters:
//   - drv: The pin driver
//   - cfg: Relay section of config.yaml (polarity and initial state)
//
// Returns:
//   - *Relay: Relay at its initial state
//   - error: If the initial write fails
func New(drv Driver, cfg config.RelayConfig) (*Relay, error) {
	if drv == nil {
		return nil, fmt.Errorf("relay: driver is required")
	}

	r := &Relay{
		driver:     drv,
		activeHigh: cfg.ActiveHigh,
	}

	var err error
	if cfg.InitialState == config.InitialOpen {
		err = r.Open()
	} else {
		err = r.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("setting initial state: %w", err)
	}

	return r, nil
}

// ActiveLevel returns the level that energises the relay.
func (r *Relay) ActiveLevel() Level {
	return Level(r.activeHigh)
}

// Open drives the pin to its active level.
func (r *Relay) Open() error {
	return r.set(r.ActiveLevel())
}

// Close drives the pin to its inactive level.
func (r *Relay) Close() error {
	return r.set(!r.ActiveLevel())
}

// IsOpen reports whether the pin is at its active level.
func (r *Relay) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.driver.Level() == r.ActiveLevel()
}

// Level returns the raw pin level.
func (r *Relay) Level() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.driver.Level()
}

// Release closes the underlying driver. Safe to call more than once.
func (r *Relay) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	return r.driver.Close()
}

func (r *Relay) set(level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if err := r.driver.Set(level); err != nil {
		return fmt.Errorf("relay: set %s: %w", level, err)
	}
	return nil
}

// OpenDriver returns the driver selected by cfg.Driver.
func OpenDriver(cfg config.RelayConfig) (Driver, error) {
	switch cfg.Driver {
	case config.RelayDriverMemory:
		return NewMemoryPin(cfg.Pin), nil
	case config.RelayDriverPeriph:
		p, err := OpenPeriph(cfg.Pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

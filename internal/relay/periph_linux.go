//go:build linux

package relay

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// PeriphPin drives a BCM GPIO line through periph.io.
type PeriphPin struct {
	pin gpio.PinIO

	mu    sync.Mutex
	level Level
}

// OpenPeriph initialises the periph host drivers once and looks up GPIO<pin>.
func OpenPeriph(pin int) (*PeriphPin, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("relay: periph host init: %w", err)
	}

	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}

	return &PeriphPin{pin: p, level: p.Read() == gpio.High}, nil
}

// Set drives the line to level.
func (p *PeriphPin) Set(level Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := gpio.Low
	if level == High {
		out = gpio.High
	}
	if err := p.pin.Out(out); err != nil {
		return fmt.Errorf("%s: %w", p.pin.Name(), err)
	}
	p.level = level
	return nil
}

// Level returns the last level written.
func (p *PeriphPin) Level() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Close stops driving the line.
func (p *PeriphPin) Close() error {
	return p.pin.Halt()
}

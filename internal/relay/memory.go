package relay

import "sync"

// MemoryPin is a Driver that keeps the level in memory.
// It records every write so tests can assert on the sequence.
type MemoryPin struct {
	pin int

	mu     sync.Mutex
	level  Level
	writes []Level
	closed bool
}

// NewMemoryPin returns a MemoryPin starting at Low.
func NewMemoryPin(pin int) *MemoryPin {
	return &MemoryPin{pin: pin}
}

// Set records the level.
func (m *MemoryPin) Set(level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrReleased
	}
	m.level = level
	m.writes = append(m.writes, level)
	return nil
}

// Level returns the last level written.
func (m *MemoryPin) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Writes returns a copy of every level written, oldest first.
func (m *MemoryPin) Writes() []Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Level, len(m.writes))
	copy(out, m.writes)
	return out
}

// Pin returns the pin number this driver stands in for.
func (m *MemoryPin) Pin() int {
	return m.pin
}

// Close marks the pin released.
func (m *MemoryPin) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Package vehicle holds the shared cart status record.
package vehicle

import (
	"math"
	"sync"
	"time"

	"github.com/autopeer-io/assistcart/internal/cartagent/protocol"
)

// UnknownVoltage marks a voltage that has not been read yet.
const UnknownVoltage = -1.0

// Status is a point-in-time copy of the cart state.
//
// Voltage is written only by the telemetry poller. The other fields are
// written only by command deltas.
type Status struct {
	EngineOn  bool
	Speed     int
	FuelLevel int
	Voltage   float64

	// VoltageUpdatedAt is zero until the first accepted reading.
	VoltageUpdatedAt time.Time

	DoorOpen  bool
	Emergency bool
}

// VoltageKnown reports whether a reading has been accepted.
func (s Status) VoltageKnown() bool {
	return s.Voltage >= 0
}

// Stale reports whether the voltage is unknown or older than bound at now.
func (s Status) Stale(now time.Time, bound time.Duration) bool {
	if !s.VoltageKnown() || s.VoltageUpdatedAt.IsZero() {
		return true
	}
	return now.Sub(s.VoltageUpdatedAt) > bound
}

// normalize enforces the field ranges on every write.
func (s *Status) normalize() {
	s.Speed = protocol.Clamp(s.Speed, protocol.MinSpeed, protocol.MaxSpeed)
	s.FuelLevel = protocol.Clamp(s.FuelLevel, protocol.MinFuel, protocol.MaxFuel)
	if math.IsNaN(s.Voltage) || math.IsInf(s.Voltage, 0) || s.Voltage < 0 {
		s.Voltage = UnknownVoltage
		s.VoltageUpdatedAt = time.Time{}
	}
}

// State guards one Status. All reads return a full copy.
type State struct {
	mu      sync.RWMutex
	current Status
	initial Status
}

// New creates the state with engine off, speed 0, unknown voltage and the
// given fuel level, clamped.
func New(fuelLevel int) *State {
	initial := Status{
		FuelLevel: fuelLevel,
		Voltage:   UnknownVoltage,
	}
	initial.normalize()
	return &State{current: initial, initial: initial}
}

// Snapshot returns a consistent copy of the current status.
func (st *State) Snapshot() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Mutate applies fn atomically and returns the resulting status.
// fn must not block; ranges are enforced after it returns.
func (st *State) Mutate(fn func(s *Status)) Status {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.current
	fn(&next)
	next.normalize()
	st.current = next
	return next
}

// SetVoltage records a telemetry reading taken at the given time.
func (st *State) SetVoltage(v float64, at time.Time) Status {
	return st.Mutate(func(s *Status) {
		s.Voltage = v
		s.VoltageUpdatedAt = at
	})
}

// Reset restores the status the State was created with. The last voltage
// reading is kept; only the telemetry poller writes it.
func (st *State) Reset() Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	voltage, at := st.current.Voltage, st.current.VoltageUpdatedAt
	st.current = st.initial
	st.current.Voltage, st.current.VoltageUpdatedAt = voltage, at
	return st.current
}

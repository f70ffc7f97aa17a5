// Package service is the entry point for commands and status queries.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/autopeer-io/assistcart/internal/cartagent/intent"
	"github.com/autopeer-io/assistcart/internal/cartagent/link"
	"github.com/autopeer-io/assistcart/internal/cartagent/vehicle"
)

// Link is the part of the serial link the service drives.
type Link interface {
	Write(ctx context.Context, cmd string) error
	IsOpen() bool
	Phase() link.Phase
	LastError() error
}

// Config holds service tunables.
type Config struct {
	// StalenessBound is the age after which a voltage reading is reported stale.
	StalenessBound time.Duration
}

// Service resolves, sends and applies commands.
type Service struct {
	link   Link
	state  *vehicle.State
	interp *intent.Interpreter
	cfg    Config
	now    func() time.Time

	// seq admits one actuation at a time, so the state reflects the last
	// command the device received. It is taken before the link and state
	// guards and never inside them.
	seq sync.Mutex
}

// New creates a Service.
func New(l Link, state *vehicle.State, interp *intent.Interpreter, cfg Config) *Service {
	if cfg.StalenessBound <= 0 {
		cfg.StalenessBound = 5 * time.Second
	}
	return &Service{
		link:   l,
		state:  state,
		interp: interp,
		cfg:    cfg,
		now:    time.Now,
	}
}

// QueryStatus returns the current vehicle status.
func (s *Service) QueryStatus() vehicle.Status {
	return s.state.Snapshot()
}

// Report returns the status with staleness and link phase for clients.
func (s *Service) Report() StatusReport {
	return s.report(s.state.Snapshot())
}

// Reset restores the start-up status, clearing the emergency latch.
// Nothing is sent to the device.
func (s *Service) Reset() StatusReport {
	s.seq.Lock()
	defer s.seq.Unlock()
	return s.report(s.state.Reset())
}

// LinkReady reports whether the serial link accepts writes.
func (s *Service) LinkReady() bool {
	return s.link.IsOpen()
}

func (s *Service) report(st vehicle.Status) StatusReport {
	r := StatusReport{
		EngineOn:     st.EngineOn,
		Speed:        st.Speed,
		FuelLevel:    st.FuelLevel,
		Voltage:      st.Voltage,
		DoorOpen:     st.DoorOpen,
		Emergency:    st.Emergency,
		VoltageStale: st.Stale(s.now(), s.cfg.StalenessBound),
		Link:         string(s.link.Phase()),
	}
	if !st.VoltageUpdatedAt.IsZero() {
		at := st.VoltageUpdatedAt
		r.VoltageUpdatedAt = &at
	}
	if err := s.link.LastError(); err != nil {
		r.LinkError = err.Error()
	}
	return r
}

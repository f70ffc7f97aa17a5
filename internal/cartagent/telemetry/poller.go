// Package telemetry drains device lines into the vehicle state.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/autopeer-io/assistcart/internal/cartagent/link"
	"github.com/autopeer-io/assistcart/internal/cartagent/protocol"
	"github.com/autopeer-io/assistcart/internal/cartagent/vehicle"
	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
	"github.com/autopeer-io/assistcart/pkg/log"
)

// Link is the part of the link manager the poller uses.
type Link interface {
	ReadLine() (string, bool)
	IsOpen() bool
	WriteOnce(ctx context.Context, cmd string) error
}

// Config controls the polling cadence.
type Config struct {
	// Interval is the idle wait between read attempts.
	Interval time.Duration

	// RequestInterval sends the voltage request token this often. Zero disables it.
	RequestInterval time.Duration
}

// Poller reads telemetry until the link closes. It never reconnects.
type Poller struct {
	link  Link
	state *vehicle.State
	cfg   Config
	now   func() time.Time
}

// NewPoller creates a Poller. A zero Interval defaults to 50ms.
func NewPoller(l Link, state *vehicle.State, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	return &Poller{
		link:  l,
		state: state,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Run polls until ctx is done or the link is no longer open.
func (p *Poller) Run(ctx context.Context) {
	log.Info("Telemetry poller started", "interval", p.cfg.Interval, "requestInterval", p.cfg.RequestInterval)
	defer log.Info("Telemetry poller stopped")

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var lastRequest time.Time
	for {
		if !p.link.IsOpen() {
			p.drain()
			return
		}

		p.drain()

		if p.cfg.RequestInterval > 0 && p.now().Sub(lastRequest) >= p.cfg.RequestInterval {
			lastRequest = p.now()
			p.requestVoltage(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drain consumes every line available now.
func (p *Poller) drain() {
	for {
		line, ok := p.link.ReadLine()
		if !ok {
			return
		}
		p.handleLine(line)
	}
}

func (p *Poller) handleLine(line string) {
	v, ok := ParseVoltage(line)
	if !ok {
		metrics.TelemetryLinesTotal.WithLabelValues("discarded").Inc()
		log.Debug("Discarding telemetry line", "line", line)
		return
	}

	p.state.SetVoltage(v, p.now())
	metrics.TelemetryLinesTotal.WithLabelValues("accepted").Inc()
	metrics.Voltage.Set(v)
}

func (p *Poller) requestVoltage(ctx context.Context) {
	err := p.link.WriteOnce(ctx, protocol.RequestVoltage.String())
	switch {
	case err == nil:
	case errors.Is(err, link.ErrBusy):
		log.Debug("Link busy, skipping voltage request")
	default:
		log.Debug("Voltage request failed", "err", err.Error())
	}
}

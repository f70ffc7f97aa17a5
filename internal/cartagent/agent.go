// Package cartagent wires the serial link, vehicle state, interpreter and
// servers into one running agent.
package cartagent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/assistcart/internal/cartagent/link"
	"github.com/autopeer-io/assistcart/internal/cartagent/server"
	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/internal/cartagent/telemetry"
	"github.com/autopeer-io/assistcart/pkg/log"
)

type Agent struct {
	cartID string

	link    *link.Manager
	poller  *telemetry.Poller
	service *service.Service
	servers *server.Manager
}

// Run connects the serial link and serves until ctx is done. A device that
// cannot be opened leaves the agent running in degraded mode.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting cart-agent", "cartID", a.cartID)

	defer func() {
		if err := a.link.Close(); err != nil {
			log.Warn("Failed to close serial link", "err", err.Error())
		}
	}()

	if err := a.link.Connect(ctx); err != nil {
		log.Error(err, "Serial link unavailable, running degraded", "port", a.link.Config().Port)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.superviseTelemetry(ctx)
		return nil
	})
	g.Go(func() error {
		return a.servers.Start(ctx)
	})

	err := g.Wait()
	log.Info("Agent shutting down...")
	return err
}

// superviseTelemetry restarts the poller each time the link becomes ready.
func (a *Agent) superviseTelemetry(ctx context.Context) {
	for {
		if err := a.link.AwaitOpen(ctx); err != nil {
			return
		}
		a.poller.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Info("Telemetry poller waiting for the serial link")
	}
}

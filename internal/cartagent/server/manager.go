package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/assistcart/internal/cartagent/server/http"
	"github.com/autopeer-io/assistcart/internal/cartagent/server/mqtt"
	"github.com/autopeer-io/assistcart/pkg/log"
)

// Server defines the common interface for all sub-servers (http, mqtt).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates the HTTP API and, when a client is configured, the MQTT bridge.
func NewManager(cfg *Config, svc http.CommandService) *Manager {
	servers := []Server{http.NewServer(cfg.HttpOptions, svc)}

	if cfg.MqttClient != nil {
		servers = append(servers, mqtt.NewServer(cfg.MqttClient, cfg.Topics, cfg.CartID, svc, cfg.MqttOptions.StatusInterval))
	}

	return &Manager{servers: servers}
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}

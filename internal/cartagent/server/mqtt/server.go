// Package mqtt bridges the command service onto an MQTT broker so a remote
// operator console can drive the cart and watch its status.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/assistcart/pkg/log"
	pkgmqtt "github.com/autopeer-io/assistcart/pkg/mqtt"
	"github.com/autopeer-io/assistcart/pkg/mqtt/topic"
)

const qos = 1

var errEmptyCommand = errors.New("command message carries no text")

// CommandService is the part of the service the bridge drives.
type CommandService interface {
	Dispatch(ctx context.Context, text string, skip bool) service.Result
	Report() service.StatusReport
}

// Server implements the MQTT ingress layer for one cart.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	cartID string
	svc    CommandService

	statusInterval time.Duration
}

// NewServer creates a new MQTT bridge for cartID.
func NewServer(client pkgmqtt.Client, builder *topic.Builder, cartID string, svc CommandService, statusInterval time.Duration) *Server {
	if statusInterval <= 0 {
		statusInterval = 2 * time.Second
	}
	return &Server{
		client:         client,
		topics:         builder,
		cartID:         cartID,
		svc:            svc,
		statusInterval: statusInterval,
	}
}

// Start connects to the broker, subscribes to the command topic and
// publishes the retained status until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publishOnline(shutdownCtx, false, "Shutdown"); err != nil {
			log.Warn("Failed to publish offline status", "err", err.Error())
		}
		log.Info("Disconnecting MQTT client...")
		s.client.Disconnect(shutdownCtx)
	}()

	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info("MQTT Connected", "cartID", s.cartID)

	if err := s.initSubscriptions(ctx); err != nil {
		return err
	}
	if err := s.publishOnline(ctx, true, "Connected"); err != nil {
		log.Warn("Failed to publish online status", "err", err.Error())
	}

	s.statusLoop(ctx)
	return nil
}

func (s *Server) initSubscriptions(ctx context.Context) error {
	subscriptions := map[string]HandlerFunc{
		paths.Command: JSONAdapter(s.handleCommand),
	}

	for segment, handler := range subscriptions {
		fullTopic := s.topics.Build(segment, s.cartID)
		if err := s.client.Subscribe(ctx, fullTopic, qos, func(c context.Context, _ string, p []byte) {
			if handleErr := handler(c, p); handleErr != nil {
				log.Error(handleErr, "Handler execution failed", "topic", fullTopic)
			}
		}); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", fullTopic, err)
		}
	}

	return nil
}

func (s *Server) handleCommand(ctx context.Context, msg *CommandMessage) error {
	text := msg.Text
	if strings.TrimSpace(text) == "" {
		text = msg.Command
	}
	if strings.TrimSpace(text) == "" && !msg.Skip {
		return errEmptyCommand
	}

	res := s.svc.Dispatch(ctx, text, msg.Skip)
	payload, err := json.Marshal(AckMessage{RequestID: msg.RequestID, Result: res})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.topics.Build(paths.CommandAck, s.cartID), qos, false, payload)
}

// statusLoop publishes the status snapshot on every tick and re-announces
// presence after a reconnect, since the broker may have fired the will.
func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	connected := true
	s.publishStatus(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.client.IsConnected()
			if now && !connected {
				if err := s.publishOnline(ctx, true, "Reconnected"); err != nil {
					log.Warn("Failed to publish online status", "err", err.Error())
				}
			}
			connected = now
			if now {
				s.publishStatus(ctx)
			}
		}
	}
}

func (s *Server) publishStatus(ctx context.Context) {
	payload, err := json.Marshal(s.svc.Report())
	if err != nil {
		log.Error(err, "Failed to encode status report")
		return
	}
	if err := s.client.Publish(ctx, s.topics.Build(paths.Status, s.cartID), qos, true, payload); err != nil && ctx.Err() == nil {
		log.Debug("Status publish failed", "err", err.Error())
	}
}

func (s *Server) publishOnline(ctx context.Context, online bool, reason string) error {
	payload, err := json.Marshal(OnlineStatus{CartID: s.cartID, Online: online, Reason: reason})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.topics.Build(paths.Online, s.cartID), qos, true, payload)
}

// OfflineWill returns the last-will payload announcing an unexpected disconnect.
func OfflineWill(cartID string) []byte {
	payload, _ := json.Marshal(OnlineStatus{CartID: cartID, Online: false, Reason: "UnexpectedDisconnect"})
	return payload
}

package cartagent

import (
	"fmt"
	"math/rand/v2"

	"github.com/autopeer-io/assistcart/internal/cartagent/intent"
	"github.com/autopeer-io/assistcart/internal/cartagent/link"
	"github.com/autopeer-io/assistcart/internal/cartagent/server"
	cartmqtt "github.com/autopeer-io/assistcart/internal/cartagent/server/mqtt"
	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/internal/cartagent/telemetry"
	"github.com/autopeer-io/assistcart/internal/cartagent/vehicle"
	"github.com/autopeer-io/assistcart/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/assistcart/pkg/log"
	"github.com/autopeer-io/assistcart/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/assistcart/pkg/mqtt/topic"
	"github.com/autopeer-io/assistcart/pkg/options"
)

type Config struct {
	SerialOptions    *options.SerialOptions
	TelemetryOptions *options.TelemetryOptions
	VehicleOptions   *options.VehicleOptions
	IntentOptions    *options.IntentOptions
	HttpOptions      *options.HttpOptions
	MqttOptions      *options.MqttOptions

	// OpenPort overrides how the serial device is opened. Nil uses the real port.
	OpenPort link.OpenFunc
}

func (cfg *Config) NewAgent() (*Agent, error) {
	cartID := discoverCartID(cfg.VehicleOptions.IDFile, cfg.VehicleOptions.ID)

	interp, err := intent.Load(cfg.IntentOptions.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load intent rules: %w", err)
	}

	fuel := cfg.VehicleOptions.InitialFuel
	if fuel < 0 {
		fuel = rand.IntN(101)
	}
	state := vehicle.New(fuel)

	lm := link.NewManager(link.Config{
		Port:        cfg.SerialOptions.Port,
		Baud:        cfg.SerialOptions.Baud,
		ReadTimeout: cfg.SerialOptions.ReadTimeout,
		Warmup:      cfg.SerialOptions.Warmup,
		LineBuffer:  cfg.SerialOptions.LineBuffer,
	}, cfg.OpenPort)

	svc := service.New(lm, state, interp, service.Config{
		StalenessBound: cfg.TelemetryOptions.StalenessBound,
	})

	poller := telemetry.NewPoller(lm, state, telemetry.Config{
		Interval:        cfg.TelemetryOptions.PollInterval,
		RequestInterval: cfg.TelemetryOptions.RequestInterval,
	})

	serverConfig := &server.Config{
		CartID:      cartID,
		HttpOptions: cfg.HttpOptions,
		MqttOptions: cfg.MqttOptions,
	}
	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		client, topics, err := cfg.initMqttClientAndTopicBuilder(cartID)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		serverConfig.MqttClient = client
		serverConfig.Topics = topics
	}

	log.Info("Cart agent configured",
		"cartID", cartID,
		"port", cfg.SerialOptions.Port,
		"fuel", fuel,
		"rules", len(interp.Rules()),
		"mqtt", serverConfig.MqttClient != nil,
	)

	return &Agent{
		cartID:  cartID,
		link:    lm,
		poller:  poller,
		service: svc,
		servers: server.NewManager(serverConfig, svc),
	}, nil
}

func (cfg *Config) initMqttClientAndTopicBuilder(cartID string) (mqtt.Client, *mqtttopic.Builder, error) {
	topicBuilder := mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)

	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("assistcart-%s", cartID)
	}

	// No timestamp in the will; the broker's delivery time is what counts.
	mqttConfig.WillTopic = topicBuilder.Build(paths.Online, cartID)
	mqttConfig.WillPayload = cartmqtt.OfflineWill(cartID)
	mqttConfig.WillQoS = 1
	mqttConfig.WillRetain = true

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return nil, nil, err
	}

	log.Info("MQTT client configured", "broker", mqttConfig.BrokerURL, "topicRoot", topicBuilder.Root(), "cartID", cartID)
	return mqttClient, topicBuilder, nil
}

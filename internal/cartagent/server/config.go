package server

import (
	"github.com/autopeer-io/assistcart/pkg/mqtt"
	"github.com/autopeer-io/assistcart/pkg/mqtt/topic"
	"github.com/autopeer-io/assistcart/pkg/options"
)

type Config struct {
	CartID      string
	HttpOptions *options.HttpOptions
	MqttOptions *options.MqttOptions

	// MqttClient is nil when the bridge is disabled.
	MqttClient mqtt.Client
	Topics     *topic.Builder
}

package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/assistcart/internal/cartagent"
	"github.com/autopeer-io/assistcart/pkg/app"
	"github.com/autopeer-io/assistcart/pkg/log"
	"github.com/autopeer-io/assistcart/pkg/options"
)

type AgentOptions struct {
	SerialOptions    *options.SerialOptions    `json:"serial" mapstructure:"serial"`
	TelemetryOptions *options.TelemetryOptions `json:"telemetry" mapstructure:"telemetry"`
	VehicleOptions   *options.VehicleOptions   `json:"vehicle" mapstructure:"vehicle"`
	IntentOptions    *options.IntentOptions    `json:"intent" mapstructure:"intent"`
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*AgentOptions)(nil)
	_ app.LogOptionsGetter    = (*AgentOptions)(nil)
)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		SerialOptions:    options.NewSerialOptions(),
		TelemetryOptions: options.NewTelemetryOptions(),
		VehicleOptions:   options.NewVehicleOptions(),
		IntentOptions:    options.NewIntentOptions(),
		HttpOptions:      options.NewHttpOptions(),
		MqttOptions:      options.NewMqttOptions(),
		Log:              log.NewOptions(),
	}

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.SerialOptions.AddFlags(fss.FlagSet("serial"))
	o.TelemetryOptions.AddFlags(fss.FlagSet("telemetry"))
	o.VehicleOptions.AddFlags(fss.FlagSet("vehicle"))
	o.IntentOptions.AddFlags(fss.FlagSet("intent"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

func (o *AgentOptions) Complete() error {
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.SerialOptions.Validate()...)
	errs = append(errs, o.TelemetryOptions.Validate()...)
	errs = append(errs, o.VehicleOptions.Validate()...)
	errs = append(errs, o.IntentOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *AgentOptions) Config() (*cartagent.Config, error) {
	return &cartagent.Config{
		SerialOptions:    o.SerialOptions,
		TelemetryOptions: o.TelemetryOptions,
		VehicleOptions:   o.VehicleOptions,
		IntentOptions:    o.IntentOptions,
		HttpOptions:      o.HttpOptions,
		MqttOptions:      o.MqttOptions,
	}, nil
}

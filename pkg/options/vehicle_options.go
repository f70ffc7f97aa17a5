package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*VehicleOptions)(nil)

// VehicleOptions holds the identity and start-up state of the cart.
type VehicleOptions struct {
	// ID names the cart in MQTT topics and logs.
	ID string `json:"id" mapstructure:"id"`

	// IDFile, when readable and non-empty, overrides ID.
	IDFile string `json:"id-file" mapstructure:"id-file"`

	// InitialFuel seeds the fuel level at start. A negative value picks a
	// random level, matching carts without a fuel gauge.
	InitialFuel int `json:"initial-fuel" mapstructure:"initial-fuel"`
}

func NewVehicleOptions() *VehicleOptions {
	return &VehicleOptions{
		ID:          "cart-001",
		InitialFuel: -1,
	}
}

func (o *VehicleOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ID == "" {
		errs = append(errs, fmt.Errorf("--vehicle.id must not be empty"))
	}
	if o.InitialFuel > 100 {
		errs = append(errs, fmt.Errorf("--vehicle.initial-fuel must be at most 100, got %d", o.InitialFuel))
	}
	return errs
}

func (o *VehicleOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.ID, "vehicle.id", o.ID, "Identifier of this cart, used in MQTT topics.")
	fs.StringVar(&o.IDFile, "vehicle.id-file", o.IDFile, "File holding the cart identifier; overrides --vehicle.id when present.")
	fs.IntVar(&o.InitialFuel, "vehicle.initial-fuel", o.InitialFuel, "Fuel level at start-up, 0-100 (negative picks a random level).")
}

var _ IOptions = (*IntentOptions)(nil)

// IntentOptions selects the phrase table used by the command interpreter.
type IntentOptions struct {
	// RulesFile is a YAML rule table. Empty uses the built-in Korean table.
	RulesFile string `json:"rules-file" mapstructure:"rules-file"`
}

func NewIntentOptions() *IntentOptions {
	return &IntentOptions{}
}

func (o *IntentOptions) Validate() []error {
	return nil
}

func (o *IntentOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.RulesFile, "intent.rules-file", o.RulesFile, "YAML file with the ordered intent rule table (empty uses the built-in table).")
}

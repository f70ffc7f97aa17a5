package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TelemetryOptions)(nil)

// TelemetryOptions tunes the background voltage poller.
type TelemetryOptions struct {
	// PollInterval is the idle wait between read attempts. It is also the
	// practical staleness floor of a reading.
	PollInterval time.Duration `json:"poll-interval" mapstructure:"poll-interval"`

	// RequestInterval makes the poller ask the firmware for a sample ("C").
	// Zero disables requests for firmware that streams on its own.
	RequestInterval time.Duration `json:"request-interval" mapstructure:"request-interval"`

	// StalenessBound is the age after which a voltage is reported stale.
	StalenessBound time.Duration `json:"staleness-bound" mapstructure:"staleness-bound"`
}

func NewTelemetryOptions() *TelemetryOptions {
	return &TelemetryOptions{
		PollInterval:    50 * time.Millisecond,
		RequestInterval: 0,
		StalenessBound:  5 * time.Second,
	}
}

func (o *TelemetryOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.PollInterval <= 0 || o.PollInterval > time.Second {
		errs = append(errs, fmt.Errorf("--telemetry.poll-interval must be in (0, 1s], got %s", o.PollInterval))
	}
	if o.RequestInterval < 0 {
		errs = append(errs, fmt.Errorf("--telemetry.request-interval must not be negative"))
	}
	if o.StalenessBound <= o.PollInterval {
		errs = append(errs, fmt.Errorf("--telemetry.staleness-bound must exceed the poll interval"))
	}
	return errs
}

func (o *TelemetryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.PollInterval, "telemetry.poll-interval", o.PollInterval, "Idle wait between serial read attempts.")
	fs.DurationVar(&o.RequestInterval, "telemetry.request-interval", o.RequestInterval, "Interval for requesting a voltage sample from the firmware (0 disables).")
	fs.DurationVar(&o.StalenessBound, "telemetry.staleness-bound", o.StalenessBound, "Age after which the last voltage reading is reported stale.")
}

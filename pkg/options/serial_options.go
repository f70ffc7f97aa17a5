package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SerialOptions)(nil)

// SerialOptions describes the microcontroller connection.
type SerialOptions struct {
	// Port is the device path, e.g. /dev/ttyACM0 or COM3.
	Port string `json:"port" mapstructure:"port"`

	Baud int `json:"baud" mapstructure:"baud"`

	// ReadTimeout is the per-read timeout handed to the driver. It bounds how
	// long the background reader blocks and therefore how fast Close is noticed.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// Warmup is the wait after opening the port. Boards that reset on open
	// drop bytes written during their boot.
	Warmup time.Duration `json:"warmup" mapstructure:"warmup"`

	// LineBuffer is how many received lines are kept until polled.
	LineBuffer int `json:"line-buffer" mapstructure:"line-buffer"`
}

// NewSerialOptions returns defaults matching an Arduino Uno on 9600 baud.
func NewSerialOptions() *SerialOptions {
	return &SerialOptions{
		Port:        "/dev/ttyACM0",
		Baud:        9600,
		ReadTimeout: 100 * time.Millisecond,
		Warmup:      2 * time.Second,
		LineBuffer:  64,
	}
}

func (o *SerialOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Port == "" {
		errs = append(errs, fmt.Errorf("--serial.port must not be empty"))
	}
	if o.Baud <= 0 {
		errs = append(errs, fmt.Errorf("--serial.baud must be positive, got %d", o.Baud))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--serial.read-timeout must be positive"))
	}
	if o.Warmup < 0 {
		errs = append(errs, fmt.Errorf("--serial.warmup must not be negative"))
	}
	if o.LineBuffer <= 0 {
		errs = append(errs, fmt.Errorf("--serial.line-buffer must be positive"))
	}
	return errs
}

func (o *SerialOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Port, "serial.port", o.Port, "Serial device connected to the cart microcontroller.")
	fs.IntVar(&o.Baud, "serial.baud", o.Baud, "Serial baud rate.")
	fs.DurationVar(&o.ReadTimeout, "serial.read-timeout", o.ReadTimeout, "Per-read timeout of the serial driver.")
	fs.DurationVar(&o.Warmup, "serial.warmup", o.Warmup, "Delay after opening the port before the first write (firmware reset time).")
	fs.IntVar(&o.LineBuffer, "serial.line-buffer", o.LineBuffer, "Number of received lines buffered until the telemetry poller reads them.")
}

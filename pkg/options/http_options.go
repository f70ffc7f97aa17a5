package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions contains configuration items for the command/status API server.
type HttpOptions struct {
	// Addr is the bind address of the API server.
	Addr string `json:"addr" mapstructure:"addr"`

	// ReadTimeout bounds reading a whole request, body included.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// WriteTimeout bounds writing a response. It must cover a command whose
	// serial write triggers a reconnect including the device warm-up.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// AllowedOrigins lists CORS origins. "*" allows any origin.
	AllowedOrigins []string `json:"allowed-origins" mapstructure:"allowed-origins"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Addr:           "0.0.0.0:8000",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}
	if o.WriteTimeout <= 0 {
		errors = append(errors, fmt.Errorf("--http.write-timeout must be positive"))
	}

	return errors
}

// AddFlags adds flags related to the API server to the specified FlagSet.
func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.DurationVar(&o.ReadTimeout, "http.read-timeout", o.ReadTimeout, "Maximum duration for reading an entire request.")
	fs.DurationVar(&o.WriteTimeout, "http.write-timeout", o.WriteTimeout, "Maximum duration before timing out writes of a response.")
	fs.StringSliceVar(&o.AllowedOrigins, "http.allowed-origins", o.AllowedOrigins, "CORS allowed origins ('*' allows any).")
}

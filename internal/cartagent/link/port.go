package link

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// Config describes the serial device and the link behavior.
type Config struct {
	// Port is the device path, e.g. /dev/ttyACM0 or COM3.
	Port string
	Baud int

	// ReadTimeout bounds a single read so the reader goroutine can notice shutdown.
	ReadTimeout time.Duration

	// Warmup is the time the firmware needs after the port opens. No write
	// is allowed during it.
	Warmup time.Duration

	// LineBuffer is the number of unread lines kept per connection.
	LineBuffer int
}

// OpenFunc opens the physical port.
type OpenFunc func(cfg *Config) (io.ReadWriteCloser, error)

// TarmOpener opens the port with github.com/tarm/serial.
func TarmOpener(cfg *Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		Parity:      serial.ParityNone,
		ReadTimeout: cfg.ReadTimeout,
	})
}

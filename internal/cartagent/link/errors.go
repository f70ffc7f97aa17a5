package link

import "errors"

var (
	// ErrUnavailable is returned when the serial device cannot be opened.
	ErrUnavailable = errors.New("serial link unavailable")

	// ErrNotConnected is returned when a write finds no ready connection.
	ErrNotConnected = errors.New("serial link not connected")

	// ErrWriteFailed wraps an I/O failure during a write.
	ErrWriteFailed = errors.New("serial write failed")

	// ErrBusy is returned by WriteOnce when another write holds the link.
	ErrBusy = errors.New("serial link busy")
)

package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
	"github.com/autopeer-io/assistcart/pkg/log"
)

const (
	readChunkSize = 256
	// maxLineLength bounds a partial line; longer garbage is dropped.
	maxLineLength = 1024
	// maxInstantEOF is how many empty reads in a row may return well before
	// the read timeout before the port is treated as hung up.
	maxInstantEOF = 8
	// minInstantWindow applies when no read timeout is configured.
	minInstantWindow = time.Millisecond
)

// errHungUp is recorded when the device vanished without a read error.
var errHungUp = errors.New("serial port hung up")

// connection is one open port plus the lines its reader produced.
type connection struct {
	port  io.ReadWriteCloser
	lines chan string

	stop      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newConnection(port io.ReadWriteCloser, buffer int) *connection {
	return &connection{
		port:  port,
		lines: make(chan string, buffer),
		stop:  make(chan struct{}),
	}
}

func (c *connection) close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.closeErr = c.port.Close()
	})
	return c.closeErr
}

func (c *connection) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// readLoop splits the byte stream on '\n' until the connection is closed or
// the port fails. A timed-out read returns io.EOF and is not a failure, but a
// run of empty reads that return immediately means the tty hung up.
func (m *Manager) readLoop(c *connection) {
	buf := make([]byte, readChunkSize)
	var pending []byte

	window := max(m.cfg.ReadTimeout/2, minInstantWindow)
	instant := 0

	for {
		start := time.Now()
		n, err := c.port.Read(buf)
		if n > 0 {
			pending = m.splitLines(c, append(pending, buf[:n]...))
		}

		if c.stopped() {
			return
		}
		if err != nil && !errors.Is(err, io.EOF) {
			m.dropConnection(c, err)
			return
		}

		if n == 0 && err != nil && time.Since(start) < window {
			instant++
		} else {
			instant = 0
		}
		if instant >= maxInstantEOF {
			m.dropConnection(c, errHungUp)
			return
		}
	}
}

// splitLines emits every complete line in data and returns the remainder.
func (m *Manager) splitLines(c *connection, data []byte) []byte {
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimSpace(data[:i]))
		data = data[i+1:]
		if line == "" {
			continue
		}

		select {
		case c.lines <- line:
		default:
			metrics.SerialDroppedLinesTotal.Inc()
			log.Debug("Line buffer full, dropping line", "line", line)
		}
	}

	if len(data) > maxLineLength {
		log.Debug("Dropping oversized partial line", "length", len(data))
		return nil
	}
	// Copy so the backing array of a long stream does not grow forever.
	return append([]byte(nil), data...)
}

// Package link owns the serial connection to the cart microcontroller.
// It frames outbound tokens and splits inbound bytes into lines, and knows
// nothing about what the tokens mean.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
	"github.com/autopeer-io/assistcart/pkg/log"
)

var errClosed = errors.New("link closed")

// Manager serializes every write through a single guard and exposes the
// lines read by a per-connection reader goroutine.
type Manager struct {
	cfg  Config
	open OpenFunc

	// mu is the write guard. It is held for a whole write, terminator included,
	// and across connect so nobody writes during warm-up.
	mu sync.Mutex

	// connMu protects the fields below. It is never held during I/O.
	connMu   sync.Mutex
	conn     *connection
	phase    *phaseMachine
	up       chan struct{}
	shutdown bool
}

// NewManager creates a Manager. A nil open uses TarmOpener.
func NewManager(cfg Config, open OpenFunc) *Manager {
	if open == nil {
		open = TarmOpener
	}
	if cfg.LineBuffer <= 0 {
		cfg.LineBuffer = 64
	}
	return &Manager{
		cfg:   cfg,
		open:  open,
		phase: newPhaseMachine(),
		up:    make(chan struct{}),
	}
}

// Connect opens the device and waits for the warm-up delay.
// Any previous connection is closed first.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

// Write sends cmd followed by '\n'. On failure it reconnects once and retries
// once before giving up.
func (m *Manager) Write(ctx context.Context, cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.writeLocked(cmd)
	if err == nil {
		return nil
	}
	if errors.Is(err, errClosed) {
		return err
	}

	log.Warn("Serial write failed, reconnecting", "cmd", cmd, "err", err.Error())
	if rerr := m.connectLocked(ctx); rerr != nil {
		metrics.LinkReconnectsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("write %q: %w; reconnect: %w", cmd, err, rerr)
	}
	metrics.LinkReconnectsTotal.WithLabelValues("success").Inc()

	if err := m.writeLocked(cmd); err != nil {
		return fmt.Errorf("write %q after reconnect: %w", cmd, err)
	}
	return nil
}

// WriteOnce makes a single write attempt. It never reconnects and returns
// ErrBusy instead of waiting for another writer.
func (m *Manager) WriteOnce(_ context.Context, cmd string) error {
	if !m.mu.TryLock() {
		return ErrBusy
	}
	defer m.mu.Unlock()
	return m.writeLocked(cmd)
}

// ReadLine returns the next buffered line. It never blocks.
func (m *Manager) ReadLine() (string, bool) {
	m.connMu.Lock()
	c := m.conn
	m.connMu.Unlock()
	if c == nil {
		return "", false
	}

	select {
	case line := <-c.lines:
		return line, true
	default:
		return "", false
	}
}

// IsOpen reports whether the link is ready for writes.
func (m *Manager) IsOpen() bool {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.conn != nil && m.phase.phase() == PhaseReady
}

// Phase returns the current connection phase.
func (m *Manager) Phase() Phase {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.phase.phase()
}

// LastError returns the error that moved the link to failed, if any.
func (m *Manager) LastError() error {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.phase.lastErr
}

// AwaitOpen blocks until the link is ready or ctx is done.
func (m *Manager) AwaitOpen(ctx context.Context) error {
	m.connMu.Lock()
	up := m.up
	m.connMu.Unlock()

	select {
	case <-up:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the connection down. Later writes fail without reconnecting.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connMu.Lock()
	m.shutdown = true
	c := m.detachLocked()
	m.connMu.Unlock()

	if c != nil {
		return c.close()
	}
	return nil
}

// Config returns the link configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// connectLocked requires m.mu.
func (m *Manager) connectLocked(ctx context.Context) error {
	m.connMu.Lock()
	if m.shutdown {
		m.connMu.Unlock()
		return fmt.Errorf("%w: %w", ErrUnavailable, errClosed)
	}
	old := m.detachLocked()
	m.phase.fire(ctx, EventOpen)
	m.connMu.Unlock()

	if old != nil {
		_ = old.close()
	}

	log.Info("Opening serial port", "port", m.cfg.Port, "baud", m.cfg.Baud)
	port, err := m.open(&m.cfg)
	if err != nil {
		err = fmt.Errorf("%w: open %s: %w", ErrUnavailable, m.cfg.Port, err)
		m.connMu.Lock()
		m.phase.fire(ctx, EventFail, err)
		m.connMu.Unlock()
		return err
	}

	c := newConnection(port, m.cfg.LineBuffer)
	m.connMu.Lock()
	m.conn = c
	m.connMu.Unlock()
	go m.readLoop(c)

	if err := sleepCtx(ctx, m.cfg.Warmup); err != nil {
		m.dropConnection(c, fmt.Errorf("%w: warm-up interrupted: %w", ErrUnavailable, err))
		return fmt.Errorf("%w: warm-up interrupted: %w", ErrUnavailable, err)
	}

	m.connMu.Lock()
	defer m.connMu.Unlock()
	if m.conn != c {
		// The reader lost the port during warm-up.
		return fmt.Errorf("%w: %w", ErrUnavailable, m.phase.lastErr)
	}
	m.phase.fire(ctx, EventReady)
	close(m.up)
	log.Info("Serial link ready", "port", m.cfg.Port, "warmup", m.cfg.Warmup)
	return nil
}

// writeLocked requires m.mu.
func (m *Manager) writeLocked(cmd string) error {
	m.connMu.Lock()
	c := m.conn
	ready := c != nil && m.phase.phase() == PhaseReady
	shutdown := m.shutdown
	m.connMu.Unlock()

	if shutdown {
		return fmt.Errorf("%w: %w", ErrNotConnected, errClosed)
	}
	if !ready {
		metrics.SerialWritesTotal.WithLabelValues("failed").Inc()
		return ErrNotConnected
	}

	frame := make([]byte, 0, len(cmd)+1)
	frame = append(frame, cmd...)
	frame = append(frame, '\n')

	n, err := c.port.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		metrics.SerialWritesTotal.WithLabelValues("failed").Inc()
		err = fmt.Errorf("%w: %w", ErrWriteFailed, err)
		m.dropConnection(c, err)
		return err
	}

	metrics.SerialWritesTotal.WithLabelValues("success").Inc()
	log.Debug("Serial write", "cmd", cmd)
	return nil
}

// dropConnection closes c and marks the link failed, unless c was already replaced.
func (m *Manager) dropConnection(c *connection, cause error) {
	m.connMu.Lock()
	if m.conn != c {
		m.connMu.Unlock()
		return
	}
	m.conn = nil
	m.resetUpLocked()
	m.phase.fire(context.Background(), EventFail, cause)
	m.connMu.Unlock()

	_ = c.close()
	log.Warn("Serial link lost", "port", m.cfg.Port, "err", cause.Error())
}

// detachLocked requires m.connMu. The caller closes the returned connection
// outside the lock.
func (m *Manager) detachLocked() *connection {
	c := m.conn
	m.conn = nil
	m.resetUpLocked()
	if m.phase.phase() != PhaseClosed {
		m.phase.fire(context.Background(), EventClose)
	}
	return c
}

// resetUpLocked re-arms the ready channel if it was closed.
func (m *Manager) resetUpLocked() {
	select {
	case <-m.up:
		m.up = make(chan struct{})
	default:
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

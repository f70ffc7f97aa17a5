package link

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
)

// fakePort is an in-memory serial port. Reads block until data is fed,
// the port is closed or it is unplugged.
type fakePort struct {
	mu       sync.Mutex
	written  []string
	failNext bool

	incoming  chan []byte
	closed    chan struct{}
	unplugged chan struct{}
	closeOnce sync.Once
	plugOnce  sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		incoming:  make(chan []byte, 16),
		closed:    make(chan struct{}),
		unplugged: make(chan struct{}),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case data := <-p.incoming:
		return copy(b, data), nil
	case <-p.closed:
		return 0, errors.New("port closed")
	case <-p.unplugged:
		return 0, errors.New("device unplugged")
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		return 0, errors.New("input/output error")
	}
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) feed(s string) { p.incoming <- []byte(s) }

func (p *fakePort) unplug() { p.plugOnce.Do(func() { close(p.unplugged) }) }

func (p *fakePort) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = fail
}

func (p *fakePort) writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

// fakeOpener hands out ports in order; nil entries fail to open.
type fakeOpener struct {
	mu    sync.Mutex
	ports []*fakePort
	calls atomic.Int32
}

func (o *fakeOpener) open(_ *Config) (io.ReadWriteCloser, error) {
	o.calls.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.ports) == 0 {
		return nil, errors.New("no such file or directory")
	}
	p := o.ports[0]
	o.ports = o.ports[1:]
	if p == nil {
		return nil, errors.New("no such file or directory")
	}
	return p, nil
}

func newTestManager(ports ...*fakePort) (*Manager, *fakeOpener) {
	o := &fakeOpener{ports: ports}
	cfg := Config{Port: "/dev/ttyFAKE", Baud: 9600, LineBuffer: 8}
	return NewManager(cfg, o.open), o
}

func TestConnectAndWrite(t *testing.T) {
	port := newFakePort()
	m, _ := newTestManager(port)

	assert.False(t, m.IsOpen())
	assert.Equal(t, PhaseClosed, m.Phase())

	require.NoError(t, m.Connect(context.Background()))
	assert.True(t, m.IsOpen())
	assert.Equal(t, PhaseReady, m.Phase())

	require.NoError(t, m.Write(context.Background(), "S40"))
	assert.Equal(t, []string{"S40\n"}, port.writes())
}

func TestConnectUnavailable(t *testing.T) {
	m, o := newTestManager()

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, PhaseFailed, m.Phase())
	assert.ErrorIs(t, m.LastError(), ErrUnavailable)
	assert.False(t, m.IsOpen())
	assert.Equal(t, int32(1), o.calls.Load())
}

func TestWriteReconnectsOnceWhenDisconnected(t *testing.T) {
	m, o := newTestManager()

	err := m.Write(context.Background(), "B")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), o.calls.Load(), "exactly one reconnect attempt")
}

func TestWriteRecoversAfterReconnect(t *testing.T) {
	broken, fresh := newFakePort(), newFakePort()
	m, o := newTestManager(broken, fresh)
	require.NoError(t, m.Connect(context.Background()))

	broken.setFail(true)
	require.NoError(t, m.Write(context.Background(), "0"))

	assert.Empty(t, broken.writes())
	assert.Equal(t, []string{"0\n"}, fresh.writes())
	assert.Equal(t, int32(2), o.calls.Load())
	assert.True(t, m.IsOpen())
}

func TestWriteGivesUpAfterOneRetry(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	first.setFail(true)
	second.setFail(true)
	m, o := newTestManager(first, second, newFakePort())
	require.NoError(t, m.Connect(context.Background()))

	err := m.Write(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, int32(2), o.calls.Load(), "connect plus one reconnect")
	assert.False(t, m.IsOpen())
}

func TestWriteOnceDoesNotReconnect(t *testing.T) {
	m, o := newTestManager()

	err := m.WriteOnce(context.Background(), "C")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, int32(0), o.calls.Load())
}

func TestWriteOnceBusy(t *testing.T) {
	m, _ := newTestManager()
	m.mu.Lock()
	defer m.mu.Unlock()

	assert.ErrorIs(t, m.WriteOnce(context.Background(), "C"), ErrBusy)
}

func TestReadLineSplitsFrames(t *testing.T) {
	port := newFakePort()
	m, _ := newTestManager(port)

	line, ok := m.ReadLine()
	assert.False(t, ok, "no connection yet")
	assert.Empty(t, line)

	require.NoError(t, m.Connect(context.Background()))

	port.feed("12.3\n4")
	port.feed("5.6\r\n\nboot ok\n")

	var got []string
	require.Eventually(t, func() bool {
		for {
			line, ok := m.ReadLine()
			if !ok {
				break
			}
			got = append(got, line)
		}
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"12.3", "45.6", "boot ok"}, got)

	_, ok = m.ReadLine()
	assert.False(t, ok)
}

func TestReadLineDropsNewestWhenFull(t *testing.T) {
	port := newFakePort()
	o := &fakeOpener{ports: []*fakePort{port}}
	m := NewManager(Config{Port: "/dev/ttyFAKE", LineBuffer: 2}, o.open)
	require.NoError(t, m.Connect(context.Background()))

	before := testutil.ToFloat64(metrics.SerialDroppedLinesTotal)
	port.feed("a\nb\nc\n")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.SerialDroppedLinesTotal)-before == 1
	}, time.Second, 5*time.Millisecond)

	first, _ := m.ReadLine()
	second, _ := m.ReadLine()
	_, ok := m.ReadLine()
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	assert.False(t, ok)
}

func TestReaderFailureMarksLinkFailed(t *testing.T) {
	port := newFakePort()
	m, _ := newTestManager(port)
	require.NoError(t, m.Connect(context.Background()))

	port.unplug()

	require.Eventually(t, func() bool { return m.Phase() == PhaseFailed }, time.Second, 5*time.Millisecond)
	assert.False(t, m.IsOpen())
	assert.EqualError(t, m.LastError(), "device unplugged")
}

// eofPort returns io.EOF with no data on every read, after delay.
type eofPort struct {
	delay time.Duration
	reads atomic.Int32
}

func (p *eofPort) Read([]byte) (int, error) {
	p.reads.Add(1)
	time.Sleep(p.delay)
	return 0, io.EOF
}

func (p *eofPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *eofPort) Close() error                { return nil }

func TestHungUpPortMarksLinkFailed(t *testing.T) {
	port := &eofPort{}
	m := NewManager(Config{Port: "/dev/ttyFAKE", ReadTimeout: 50 * time.Millisecond, LineBuffer: 8},
		func(*Config) (io.ReadWriteCloser, error) { return port, nil })
	// The hang-up may be noticed before or after the link turns ready.
	_ = m.Connect(context.Background())

	require.Eventually(t, func() bool { return m.Phase() == PhaseFailed }, time.Second, 5*time.Millisecond)
	assert.False(t, m.IsOpen())
	assert.ErrorIs(t, m.LastError(), errHungUp)

	// The reader stopped instead of spinning.
	reads := port.reads.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, reads, port.reads.Load())
}

func TestReadTimeoutKeepsLinkReady(t *testing.T) {
	port := &eofPort{delay: 10 * time.Millisecond}
	m := NewManager(Config{Port: "/dev/ttyFAKE", ReadTimeout: 10 * time.Millisecond, LineBuffer: 8},
		func(*Config) (io.ReadWriteCloser, error) { return port, nil })
	require.NoError(t, m.Connect(context.Background()))
	defer m.Close()

	require.Eventually(t, func() bool { return port.reads.Load() > maxInstantEOF*2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, PhaseReady, m.Phase())
	assert.True(t, m.IsOpen())
}

func TestConcurrentWritesAreNotInterleaved(t *testing.T) {
	port := newFakePort()
	m, _ := newTestManager(port)
	require.NoError(t, m.Connect(context.Background()))

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd := "S40"
			if i%2 == 0 {
				cmd = "F100"
			}
			assert.NoError(t, m.Write(context.Background(), cmd))
		}()
	}
	wg.Wait()

	writes := port.writes()
	require.Len(t, writes, writers)
	for _, w := range writes {
		assert.True(t, w == "S40\n" || w == "F100\n", "torn frame %q", w)
	}
	assert.Equal(t, writers, strings.Count(strings.Join(writes, ""), "\n"))
}

func TestAwaitOpen(t *testing.T) {
	port := newFakePort()
	m, _ := newTestManager(port)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.AwaitOpen(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- m.AwaitOpen(context.Background()) }()

	require.NoError(t, m.Connect(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitOpen did not return after Connect")
	}
}

func TestWarmupBlocksWriters(t *testing.T) {
	port := newFakePort()
	o := &fakeOpener{ports: []*fakePort{port}}
	m := NewManager(Config{Port: "/dev/ttyFAKE", Warmup: 50 * time.Millisecond}, o.open)

	connected := make(chan struct{})
	go func() {
		assert.NoError(t, m.Connect(context.Background()))
		close(connected)
	}()

	require.Eventually(t, func() bool { return m.Phase() == PhaseWarming }, time.Second, time.Millisecond)
	assert.False(t, m.IsOpen())
	assert.ErrorIs(t, m.WriteOnce(context.Background(), "C"), ErrBusy)

	<-connected
	assert.True(t, m.IsOpen())
}

func TestCloseStopsWrites(t *testing.T) {
	port := newFakePort()
	m, o := newTestManager(port, newFakePort())
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Close())

	err := m.Write(context.Background(), "0")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, int32(1), o.calls.Load(), "no reconnect after Close")
	assert.Equal(t, PhaseClosed, m.Phase())
}

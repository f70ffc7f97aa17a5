package cartagent

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/assistcart/internal/cartagent/link"
	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/pkg/options"
)

// streamPort emits its lines once and then blocks until closed.
type streamPort struct {
	mu      sync.Mutex
	lines   chan []byte
	closed  chan struct{}
	once    sync.Once
	written []string
}

func newStreamPort(lines ...string) *streamPort {
	p := &streamPort{lines: make(chan []byte, len(lines)), closed: make(chan struct{})}
	for _, l := range lines {
		p.lines <- []byte(l)
	}
	return p
}

func (p *streamPort) Read(b []byte) (int, error) {
	select {
	case l := <-p.lines:
		return copy(b, l), nil
	case <-p.closed:
		return 0, errors.New("port closed")
	}
}

func (p *streamPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *streamPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func testConfig(open link.OpenFunc) *Config {
	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = "127.0.0.1:0"

	serialOpts := options.NewSerialOptions()
	serialOpts.Port = "/dev/ttyFAKE"
	serialOpts.Warmup = 0

	vehicleOpts := options.NewVehicleOptions()
	vehicleOpts.InitialFuel = 60

	return &Config{
		SerialOptions:    serialOpts,
		TelemetryOptions: options.NewTelemetryOptions(),
		VehicleOptions:   vehicleOpts,
		IntentOptions:    options.NewIntentOptions(),
		HttpOptions:      httpOpts,
		MqttOptions:      options.NewMqttOptions(),
		OpenPort:         open,
	}
}

func runAgent(t *testing.T, a *Agent) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	return cancel, done
}

func TestAgentReadsTelemetryAndDispatches(t *testing.T) {
	port := newStreamPort("12.64\n")
	a, err := testConfig(func(*link.Config) (io.ReadWriteCloser, error) { return port, nil }).NewAgent()
	require.NoError(t, err)

	cancel, done := runAgent(t, a)
	defer cancel()

	require.Eventually(t, func() bool {
		return a.service.QueryStatus().Voltage == 12.6
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 60, a.service.QueryStatus().FuelLevel)

	res := a.service.Dispatch(context.Background(), "시동 켜", false)
	assert.Equal(t, service.StatusOK, res.Status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}
	assert.Equal(t, link.PhaseClosed, a.link.Phase())
}

func TestAgentRunsDegradedWithoutDevice(t *testing.T) {
	a, err := testConfig(func(*link.Config) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such file or directory")
	}).NewAgent()
	require.NoError(t, err)

	cancel, done := runAgent(t, a)
	defer cancel()

	require.Eventually(t, func() bool { return a.link.Phase() == link.PhaseFailed }, time.Second, 5*time.Millisecond)

	res := a.service.Dispatch(context.Background(), "탑승", false)
	assert.Equal(t, service.StatusFailed, res.Status)
	assert.False(t, a.service.QueryStatus().DoorOpen)
	assert.Equal(t, "failed", a.service.Report().Link)

	cancel()
	require.NoError(t, <-done)
}

func TestNewAgentRejectsBadRules(t *testing.T) {
	cfg := testConfig(nil)
	cfg.IntentOptions.RulesFile = "testdata/does-not-exist.yaml"

	_, err := cfg.NewAgent()
	assert.Error(t, err)
}

func TestNewAgentRandomFuel(t *testing.T) {
	cfg := testConfig(nil)
	cfg.VehicleOptions.InitialFuel = -1

	a, err := cfg.NewAgent()
	require.NoError(t, err)
	fuel := a.service.QueryStatus().FuelLevel
	assert.GreaterOrEqual(t, fuel, 0)
	assert.LessOrEqual(t, fuel, 100)
}

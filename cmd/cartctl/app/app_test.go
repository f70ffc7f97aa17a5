package app

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/assistcart/internal/cartagent/server/http"
	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/pkg/options"
)

type stubService struct{ lastText string }

func (s *stubService) Dispatch(_ context.Context, text string, _ bool) service.Result {
	s.lastText = text
	return service.Result{Status: service.StatusOK, Ack: "시동을 켰습니다.", SentCommand: "0"}
}

func (s *stubService) Emergency(ctx context.Context) service.Result {
	return s.Dispatch(ctx, "E", false)
}

func (s *stubService) SetFuelLevel(_ context.Context, level int) (service.FuelResult, error) {
	return service.FuelResult{Message: "연료를 설정했습니다.", Level: level}, nil
}

func (s *stubService) Report() service.StatusReport {
	return service.StatusReport{EngineOn: true, Speed: 40, FuelLevel: 70, Voltage: -1, VoltageStale: true, Link: "ready"}
}

func (s *stubService) Reset() service.StatusReport { return service.StatusReport{FuelLevel: 50, Link: "ready"} }

func (s *stubService) LinkReady() bool { return true }

func execute(t *testing.T, svc *stubService, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(http.NewHandler(options.NewHttpOptions(), svc))
	defer srv.Close()

	var out bytes.Buffer
	cmd := NewCommand(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusTable(t *testing.T) {
	out, err := execute(t, &stubService{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ENGINE")
	assert.Contains(t, out, "70%")
	assert.Contains(t, out, "unknown")
}

func TestStatusTableShowsLinkError(t *testing.T) {
	r := service.StatusReport{Voltage: -1, Link: "failed", LinkError: "serial port hung up"}
	assert.Contains(t, statusTable(r).String(), "failed (serial port hung up)")
}

func TestSendJoinsArguments(t *testing.T) {
	svc := &stubService{}
	out, err := execute(t, svc, "send", "시동", "켜")
	require.NoError(t, err)
	assert.Equal(t, "시동 켜", svc.lastText)
	assert.Contains(t, out, "ok")
}

func TestJSONOutput(t *testing.T) {
	out, err := execute(t, &stubService{}, "-o", "json", "fuel", "55")
	require.NoError(t, err)
	assert.Contains(t, out, `"level": 55`)
}

func TestInvalidArguments(t *testing.T) {
	_, err := execute(t, &stubService{}, "fuel", "lots")
	assert.Error(t, err)

	_, err = execute(t, &stubService{}, "-o", "yaml", "status")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	out, err := execute(t, &stubService{}, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "50%")
}

func TestEmergency(t *testing.T) {
	svc := &stubService{}
	_, err := execute(t, svc, "emergency")
	require.NoError(t, err)
	assert.Equal(t, "E", svc.lastText)
}

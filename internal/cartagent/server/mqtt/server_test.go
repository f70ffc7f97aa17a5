package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	pkgmqtt "github.com/autopeer-io/assistcart/pkg/mqtt"
	"github.com/autopeer-io/assistcart/pkg/mqtt/topic"
)

type published struct {
	topic   string
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu       sync.Mutex
	handlers map[string]pkgmqtt.MessageHandler
	pubs     []published
}

var _ pkgmqtt.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]pkgmqtt.MessageHandler{}}
}

func (c *fakeClient) Start(context.Context) error           { return nil }
func (c *fakeClient) Disconnect(context.Context)            {}
func (c *fakeClient) AwaitConnection(context.Context) error { return nil }
func (c *fakeClient) IsConnected() bool                     { return true }

func (c *fakeClient) Publish(_ context.Context, topic string, _ int, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pubs = append(c.pubs, published{topic: topic, retain: retain, payload: payload})
	return nil
}

func (c *fakeClient) Subscribe(_ context.Context, topic string, _ int, handler pkgmqtt.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	return nil
}

func (c *fakeClient) Unsubscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, topic)
	return nil
}

func (c *fakeClient) handler(topic string) pkgmqtt.MessageHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers[topic]
}

func (c *fakeClient) publishedOn(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, p := range c.pubs {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type stubService struct {
	mu    sync.Mutex
	texts []string
}

func (s *stubService) Dispatch(_ context.Context, text string, skip bool) service.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	if skip {
		return service.Result{Status: service.StatusSkipped, Skipped: true, Ack: service.SkippedAck}
	}
	return service.Result{Status: service.StatusOK, Ack: "시동을 켰습니다.", SentCommand: "0"}
}

func (s *stubService) Report() service.StatusReport {
	return service.StatusReport{FuelLevel: 50, Link: "ready"}
}

func startServer(t *testing.T) (*fakeClient, *stubService, context.CancelFunc, <-chan error) {
	t.Helper()
	client, svc := newFakeClient(), &stubService{}
	srv := NewServer(client, topic.NewBuilder("assistcart/v1"), "cart-7", svc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		return client.handler("assistcart/v1/command/cart-7") != nil
	}, time.Second, time.Millisecond)
	return client, svc, cancel, done
}

func TestCommandIsDispatchedAndAcknowledged(t *testing.T) {
	client, svc, cancel, done := startServer(t)
	defer cancel()

	h := client.handler("assistcart/v1/command/cart-7")
	h(context.Background(), "assistcart/v1/command/cart-7", []byte(`{"requestId":"r1","text":"시동 켜"}`))

	acks := client.publishedOn("assistcart/v1/command/ack/cart-7")
	require.Len(t, acks, 1)
	assert.False(t, acks[0].retain)

	var ack AckMessage
	require.NoError(t, json.Unmarshal(acks[0].payload, &ack))
	assert.Equal(t, "r1", ack.RequestID)
	assert.Equal(t, service.StatusOK, ack.Status)
	assert.Equal(t, "0", ack.SentCommand)
	assert.Equal(t, []string{"시동 켜"}, svc.texts)

	cancel()
	require.NoError(t, <-done)
}

func TestCommandAliasAndSkip(t *testing.T) {
	client, svc, cancel, _ := startServer(t)
	defer cancel()

	h := client.handler("assistcart/v1/command/cart-7")
	h(context.Background(), "", []byte(`{"command":"빨리","skip":true}`))

	acks := client.publishedOn("assistcart/v1/command/ack/cart-7")
	require.Len(t, acks, 1)
	var ack AckMessage
	require.NoError(t, json.Unmarshal(acks[0].payload, &ack))
	assert.True(t, ack.Skipped)
	assert.Equal(t, []string{"빨리"}, svc.texts)
}

func TestBlankTextFallsBackToCommand(t *testing.T) {
	client, svc, cancel, _ := startServer(t)
	defer cancel()

	h := client.handler("assistcart/v1/command/cart-7")
	h(context.Background(), "", []byte(`{"text":"  ","command":"빨리"}`))
	h(context.Background(), "", []byte(`{"text":" \t"}`))

	assert.Len(t, client.publishedOn("assistcart/v1/command/ack/cart-7"), 1)
	assert.Equal(t, []string{"빨리"}, svc.texts)
}

func TestInvalidCommandIsDropped(t *testing.T) {
	client, svc, cancel, _ := startServer(t)
	defer cancel()

	h := client.handler("assistcart/v1/command/cart-7")
	h(context.Background(), "", []byte(`not json`))
	h(context.Background(), "", []byte(`{}`))

	assert.Empty(t, client.publishedOn("assistcart/v1/command/ack/cart-7"))
	assert.Empty(t, svc.texts)
}

func TestPresenceAndStatus(t *testing.T) {
	client, _, cancel, done := startServer(t)

	require.Eventually(t, func() bool {
		return len(client.publishedOn("assistcart/v1/status/cart-7")) >= 2
	}, time.Second, 5*time.Millisecond)

	status := client.publishedOn("assistcart/v1/status/cart-7")[0]
	assert.True(t, status.retain)
	assert.Contains(t, string(status.payload), `"fuelLevel":50`)

	cancel()
	require.NoError(t, <-done)

	online := client.publishedOn("assistcart/v1/online/cart-7")
	require.Len(t, online, 2)

	var first, last OnlineStatus
	require.NoError(t, json.Unmarshal(online[0].payload, &first))
	require.NoError(t, json.Unmarshal(online[1].payload, &last))
	assert.True(t, first.Online)
	assert.False(t, last.Online)
	assert.Equal(t, "cart-7", last.CartID)
	assert.True(t, online[1].retain)
}

func TestOfflineWill(t *testing.T) {
	var will OnlineStatus
	require.NoError(t, json.Unmarshal(OfflineWill("cart-1"), &will))
	assert.Equal(t, OnlineStatus{CartID: "cart-1", Online: false, Reason: "UnexpectedDisconnect"}, will)
}

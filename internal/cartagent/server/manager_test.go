package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcServer func(ctx context.Context) error

func (f funcServer) Start(ctx context.Context) error { return f(ctx) }

func TestManagerStopsAllOnFirstError(t *testing.T) {
	boom := errors.New("bind: address already in use")
	stopped := make(chan struct{})

	m := &Manager{servers: []Server{
		funcServer(func(context.Context) error { return boom }),
		funcServer(func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}),
	}}

	assert.ErrorIs(t, m.Start(context.Background()), boom)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sibling server was not stopped")
	}
}

func TestManagerReturnsOnCancel(t *testing.T) {
	m := &Manager{servers: []Server{
		funcServer(func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Start(ctx))
}

package main

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/worker"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownDrainsBroadcastsBeforeClosingBus(t *testing.T) {
	bus := broadcast.NewLocalBus()
	workers := worker.NewWorkerPool(1, zerolog.Nop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := &http.Server{Handler: http.NotFoundHandler()}
	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()

	published := make(chan error, 1)
	require.True(t, workers.Submit(func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		err := bus.Publish(ctx, broadcast.NewResync("acme", ""))
		published <- err
		return err
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	shutdown(ctx, server, workers, bus, zerolog.Nop())

	assert.NoError(t, <-published)
	assert.ErrorIs(t, <-served, http.ErrServerClosed)

	_, err = bus.Subscribe(context.Background())
	assert.ErrorIs(t, err, broadcast.ErrClosed)
	assert.False(t, workers.Submit(func(context.Context) error { return nil }))
}

package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func receiveOne(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func waitClosed(t *testing.T, ch <-chan Message) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription was not closed")
		}
	}
}

func TestLocalBus_FanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	defer bus.Close()
	ctx := context.Background()

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewResync("acme", "tab-1")))

	assert.Equal(t, "acme", receiveOne(t, a).Data.Organization)
	assert.Equal(t, "tab-1", receiveOne(t, b).Data.Origin)
}

func TestLocalBus_RejectsInvalid(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(context.Background(), NewResync("", "")))
}

func TestLocalBus_SlowSubscriberDrops(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	defer bus.Close()
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, bus.Publish(ctx, NewResync("acme", "")))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestLocalBus_ContextCancelUnsubscribes(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	waitClosed(t, ch)

	// publishing to nobody is fine
	assert.NoError(t, bus.Publish(context.Background(), NewResync("acme", "")))
}

func TestLocalBus_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	ch, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	waitClosed(t, ch)

	assert.ErrorIs(t, bus.Publish(context.Background(), NewResync("acme", "")), ErrClosed)
	_, err = bus.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

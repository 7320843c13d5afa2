package broadcast

import (
	"context"
	"docflow/internal/domain"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBus(t *testing.T) (*RedisBus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBus(client, "document-updates", zerolog.Nop()), client
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	bus, _ := newRedisBus(t)
	defer bus.Close()
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	doc := domain.DocumentView{ID: "d1", Title: "Plan", Status: domain.StatusDraft}
	require.NoError(t, bus.Publish(ctx, NewCreate("acme", doc, "tab-1")))

	msg := receiveOne(t, ch)
	assert.Equal(t, KindCreate, msg.Data.Kind())
	assert.Equal(t, "Plan", msg.Data.NewDocument.Title)
}

func TestRedisBus_SkipsInvalidFrames(t *testing.T) {
	bus, client := newRedisBus(t)
	defer bus.Close()
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "document-updates", "garbage").Err())
	require.NoError(t, client.Publish(ctx, "document-updates", `{"type":"UPDATE","data":{}}`).Err())
	require.NoError(t, bus.Publish(ctx, NewResync("acme", "")))

	msg := receiveOne(t, ch)
	assert.Equal(t, KindResync, msg.Data.Kind())
	assert.Equal(t, "acme", msg.Data.Organization)
}

func TestRedisBus_CloseEndsSubscriptions(t *testing.T) {
	bus, _ := newRedisBus(t)

	ch, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	waitClosed(t, ch)

	assert.ErrorIs(t, bus.Publish(context.Background(), NewResync("acme", "")), ErrClosed)
}

func TestRedisBus_ContextCancel(t *testing.T) {
	bus, _ := newRedisBus(t)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	waitClosed(t, ch)
}

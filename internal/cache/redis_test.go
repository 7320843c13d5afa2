package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, zerolog.Nop()), mr
}

type item struct {
	Title string `json:"title"`
}

func TestSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []item{{Title: "a"}}, time.Minute))

	var out []item
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []item{{Title: "a"}}, out)

	found, err = c.Get(ctx, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSet_Expires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", item{Title: "a"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var out item
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVersion(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := DocumentsVersionKey("acme")

	assert.Equal(t, int64(0), c.GetVersion(ctx, key))
	c.IncrementVersion(ctx, key)
	c.IncrementVersion(ctx, key)
	assert.Equal(t, int64(2), c.GetVersion(ctx, key))
}

func TestDisabledCache(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Set(ctx, "k", item{}, time.Minute))
	found, err := c.Get(ctx, "k", &item{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(0), c.GetVersion(ctx, "v"))
	c.IncrementVersion(ctx, "v")

	disabled := New(nil, zerolog.Nop())
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Close())
}

func TestConnect_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := Connect(context.Background(), addr, zerolog.Nop())
	assert.False(t, c.Enabled())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "org:acme:docs:version", DocumentsVersionKey("acme"))
	assert.Equal(t, "docs:o:acme:v:3:u:a@acme.com", DocumentsListKey("acme", 3, "a@acme.com"))
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), 0))
	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemory_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	require.NoError(t, c.Set(ctx, "events:bounds:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "events:bounds:b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "other:c", []byte("3"), 0))

	removed, err := c.DeleteByPrefix(ctx, "events:bounds:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = c.Get(ctx, "events:bounds:a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err := c.Get(ctx, "other:c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)
}

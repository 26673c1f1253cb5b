package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache(1, time.Minute)
	defer mc.Stop()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok := mc.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.True(t, mc.Has(ctx, "k"))

	_, ok = mc.Get(ctx, "missing")
	assert.False(t, ok)

	stats := mc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(2), stats.Size)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache(1, time.Minute)
	defer mc.Stop()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	assert.False(t, mc.Has(ctx, "k"))
	_, ok := mc.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), mc.Stats().Size)
}

func TestMemoryCache_ReplaceAdjustsSize(t *testing.T) {
	mc := NewMemoryCache(1, time.Minute)
	defer mc.Stop()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("long value"), 0))
	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, int64(2), mc.Stats().Size)
}

func TestMemoryCache_EvictsSoonestExpiring(t *testing.T) {
	mc := NewMemoryCache(1, time.Minute)
	defer mc.Stop()
	ctx := context.Background()
	half := []byte(strings.Repeat("x", 600*1024))

	require.NoError(t, mc.Set(ctx, "short", half, time.Minute))
	require.NoError(t, mc.Set(ctx, "long", []byte("small"), time.Hour))
	require.NoError(t, mc.Set(ctx, "new", half, 2*time.Hour))

	assert.False(t, mc.Has(ctx, "short"))
	assert.True(t, mc.Has(ctx, "long"))
	assert.True(t, mc.Has(ctx, "new"))
	assert.Equal(t, int64(1), mc.Stats().Evictions)
}

func TestMemoryCache_DeleteClearStop(t *testing.T) {
	mc := NewMemoryCache(0, time.Minute)
	ctx := context.Background()

	_ = mc.Set(ctx, "a", []byte("1"), 0)
	_ = mc.Set(ctx, "b", []byte("2"), 0)
	require.NoError(t, mc.Delete(ctx, "a"))
	assert.False(t, mc.Has(ctx, "a"))

	require.NoError(t, mc.Clear(ctx))
	assert.False(t, mc.Has(ctx, "b"))
	assert.Equal(t, int64(0), mc.Stats().Size)

	mc.Stop()
	mc.Stop()
}

func TestJSONHelpers(t *testing.T) {
	mc := NewMemoryCache(1, time.Minute)
	defer mc.Stop()
	ctx := context.Background()

	type snapshot struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, SetJSON(ctx, mc, "snap", snapshot{IDs: []string{"a", "b"}}, time.Minute))

	var got snapshot
	require.True(t, GetJSON(ctx, mc, "snap", &got))
	assert.Equal(t, []string{"a", "b"}, got.IDs)

	_ = mc.Set(ctx, "broken", []byte("{"), time.Minute)
	assert.False(t, GetJSON(ctx, mc, "broken", &got))
	assert.False(t, mc.Has(ctx, "broken"), "undecodable entries are dropped")
}

package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return map[string]string{"hello": "world"}, nil
	}

	key, err := cache.BuildKey(ctx, 1, "reports", "tb", "10")
	require.NoError(t, err)

	var first map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
}

func TestCacheBumpChangesKey(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, 1, "reports", "tb", "10")
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx, 1))
	after, err := cache.BuildKey(ctx, 1, "reports", "tb", "10")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestCacheBumpIsPerTenant(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	otherBefore, err := cache.BuildKey(ctx, 2, "reports", "tb", "10")
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx, 1))
	otherAfter, err := cache.BuildKey(ctx, 2, "reports", "tb", "10")
	require.NoError(t, err)

	assert.Equal(t, otherBefore, otherAfter)
}

func TestNilCacheFallsThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return []string{"a"}, nil
	}
	key, err := cache.BuildKey(ctx, 1, "x")
	require.NoError(t, err)

	var out []string
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	assert.Equal(t, 2, loads)
	assert.Equal(t, []string{"a"}, out)
}

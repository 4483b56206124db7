package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) Compute {
	return func(context.Context) (any, error) { return v, nil }
}

func TestKeyForIsOrderIndependent(t *testing.T) {
	k1 := KeyFor(Kwargs{"a": 1, "b": 2})
	k2 := KeyFor(Kwargs{"b": 2, "a": 1})
	assert.Equal(t, k1, k2)

	k3 := KeyFor(Kwargs{"a": 1, "b": 3})
	assert.NotEqual(t, k1, k3)
}

func TestGetOrComputeMemoizes(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(10, time.Minute)

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return "value", nil
	}

	v, err := c.GetOrCompute(ctx, Kwargs{"a": 1, "b": 2}, compute)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	// Same kwargs in a different insertion order hit the same entry.
	v, err = c.GetOrCompute(ctx, Kwargs{"b": 2, "a": 1}, compute)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeNilCompute(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(10, time.Minute)

	v, err := c.GetOrCompute(ctx, Kwargs{"k": 1}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Len(), "nil compute caches nothing")
}

func TestFailedComputeIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(10, time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrCompute(ctx, Kwargs{"k": 1}, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	// A later successful compute fills the entry normally.
	v, err := c.GetOrCompute(ctx, Kwargs{"k": 1}, constant(42))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(10, 10*time.Millisecond)

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrCompute(ctx, Kwargs{"k": 1}, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(20 * time.Millisecond)

	v, err = c.GetOrCompute(ctx, Kwargs{"k": 1}, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entries are recomputed")
}

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(2, time.Minute)

	_, err := c.GetOrCompute(ctx, Kwargs{"k": "a"}, constant("a"))
	require.NoError(t, err)
	_, err = c.GetOrCompute(ctx, Kwargs{"k": "b"}, constant("b"))
	require.NoError(t, err)

	// Touch "a" so "b" becomes least recently used.
	_, err = c.GetOrCompute(ctx, Kwargs{"k": "a"}, nil)
	require.NoError(t, err)

	_, err = c.GetOrCompute(ctx, Kwargs{"k": "c"}, constant("c"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	// "a" survived the eviction; "b" did not.
	v, err := c.GetOrCompute(ctx, Kwargs{"k": "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	recomputed := 0
	_, err = c.GetOrCompute(ctx, Kwargs{"k": "b"}, func(context.Context) (any, error) {
		recomputed++
		return "b2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, recomputed)
}

func TestInvalidateAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(10, time.Minute)

	_, err := c.GetOrCompute(ctx, Kwargs{"k": 1}, constant(1))
	require.NoError(t, err)
	_, err = c.GetOrCompute(ctx, Kwargs{"k": 2}, constant(2))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	c.Invalidate(Kwargs{"k": 1})
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	c := NewRetrievalCache(10, time.Minute)

	stats := c.GetStats()
	assert.Equal(t, 0.0, stats.HitRate, "hit rate is 0.0 before the first request")

	_, err := c.GetOrCompute(ctx, Kwargs{"k": 1}, constant(1)) // miss
	require.NoError(t, err)
	_, err = c.GetOrCompute(ctx, Kwargs{"k": 1}, nil) // hit
	require.NoError(t, err)
	_, err = c.GetOrCompute(ctx, Kwargs{"k": 1}, nil) // hit
	require.NoError(t, err)

	stats = c.GetStats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(3), stats.TotalRequests)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
	assert.Equal(t, time.Minute, stats.TTL)
}

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinSDK/Authincation-service/errors"
)

func TestReadThrough(t *testing.T) {
	loads := 0
	c, err := New(8, func(ctx context.Context, key int64) (string, error) {
		loads++
		if key == 404 {
			return "", errors.NewC("no such row", errors.NotFound)
		}
		return "value", nil
	})
	require.NoError(t, err)

	v, err := c.Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, loads)

	_, err = c.Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, loads, "second read should hit the cache")

	_, err = c.Get(t.Context(), 404)
	assert.Equal(t, errors.NotFound, errors.CodeOf(err))
	assert.Equal(t, 2, loads)

	_, err = c.Get(t.Context(), 404)
	assert.Error(t, err)
	assert.Equal(t, 3, loads, "failed loads must not be cached")
}

func TestInvalidate(t *testing.T) {
	loads := 0
	c, err := New(8, func(ctx context.Context, key string) (int, error) {
		loads++
		return loads, nil
	})
	require.NoError(t, err)

	v, _ := c.Get(t.Context(), "k")
	assert.Equal(t, 1, v)

	c.Invalidate("k")
	v, _ = c.Get(t.Context(), "k")
	assert.Equal(t, 2, v, "invalidate should force a reload")

	c.Invalidate("never-cached")
}

func TestPut(t *testing.T) {
	c, err := New(8, func(ctx context.Context, key string) (int, error) {
		t.Fatal("loader should not run")
		return 0, nil
	})
	require.NoError(t, err)

	c.Put("k", 42)
	v, err := c.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	c, err := New(2, func(ctx context.Context, key int) (int, error) {
		return key * 10, nil
	})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := c.Get(t.Context(), i)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len(), "capacity should bound the entry count")
}

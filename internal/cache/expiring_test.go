package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestExpiring_GetSet(t *testing.T) {
	clk := newClock()
	c := NewExpiring[string](5 * time.Minute).WithClock(clk.now)

	_, ok := c.Get()
	assert.False(t, ok, "empty cache should miss")

	c.Set("accounts")
	v, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "accounts", v)
	assert.Equal(t, clk.t.Add(5*time.Minute), c.ExpiresAt())

	clk.t = clk.t.Add(4 * time.Minute)
	_, ok = c.Get()
	assert.True(t, ok, "still fresh")

	clk.t = clk.t.Add(time.Minute)
	_, ok = c.Get()
	assert.False(t, ok, "expired exactly at expiresAt")
	assert.True(t, c.ExpiresAt().IsZero())
}

func TestExpiring_Invalidate(t *testing.T) {
	c := NewExpiring[int](time.Hour)
	c.Set(42)
	c.Invalidate()
	_, ok := c.Get()
	assert.False(t, ok)
}

func TestExpiring_GetOrLoad(t *testing.T) {
	clk := newClock()
	c := NewExpiring[[]string](time.Minute).WithClock(clk.now)

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"Assets:Cash"}, nil
	}

	v, err := c.GetOrLoad(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, []string{"Assets:Cash"}, v)

	_, err = c.GetOrLoad(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call served from cache")

	clk.t = clk.t.Add(2 * time.Minute)
	_, err = c.GetOrLoad(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "reload after expiry")
}

func TestExpiring_GetOrLoadError(t *testing.T) {
	c := NewExpiring[int](time.Minute)
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get()
	assert.False(t, ok, "failed load caches nothing")
}

package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fail(context.Context) (int, error) { return 0, errors.New("boom") }
func succeed(context.Context) (int, error) { return 1, nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg BreakerConfig) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("jina", cfg)
	b.now = clock.Now
	return b, clock
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{Threshold: 3, Cooldown: time.Minute})
	for range 3 {
		_, err := Do(context.Background(), b, fail)
		require.Error(t, err)
	}
	assert.Equal(t, Open, b.State())

	called := false
	_, err := Do(context.Background(), b, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "jina")
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{Threshold: 3})
	_, _ = Do(context.Background(), b, fail)
	_, _ = Do(context.Background(), b, fail)
	assert.Equal(t, 2, b.Failures())

	v, err := Do(context.Background(), b, succeed)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Zero(t, b.Failures())
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	t.Parallel()

	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: 10 * time.Second, Probes: 2})
	_, _ = Do(context.Background(), b, fail)
	require.Equal(t, Open, b.State())

	clock.Advance(10 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	_, err := Do(context.Background(), b, succeed)
	require.NoError(t, err)
	assert.Equal(t, HalfOpen, b.State())

	_, err = Do(context.Background(), b, succeed)
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second})
	_, _ = Do(context.Background(), b, fail)
	clock.Advance(time.Second)

	_, err := Do(context.Background(), b, fail)
	require.Error(t, err)
	assert.Equal(t, Open, b.State())

	_, err = Do(context.Background(), b, succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_CancellationDoesNotCount(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{Threshold: 1})
	_, err := Do(context.Background(), b, func(context.Context) (int, error) {
		return 0, context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{Threshold: 1})
	_, _ = Do(context.Background(), b, fail)
	require.Equal(t, Open, b.State())

	b.Reset()
	assert.Equal(t, Closed, b.State())
	assert.Zero(t, b.Failures())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("provider down")

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New(cfg)
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(ctx context.Context) error { return errProvider }
func ok(ctx context.Context) error   { return nil }

func TestStaysClosedBelowMinRequests(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureRate: 0.5, MinRequests: 5})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, b.Execute(ctx, fail), errProvider)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestTripsOnFailureRate(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureRate: 0.5, MinRequests: 4})
	ctx := context.Background()

	require.NoError(t, b.Execute(ctx, ok))
	require.NoError(t, b.Execute(ctx, ok))
	require.Error(t, b.Execute(ctx, fail))
	require.Error(t, b.Execute(ctx, fail))

	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not reach downstream")
}

func TestHalfOpenProbeRecovers(t *testing.T) {
	b, now := newTestBreaker(Config{FailureRate: 0.5, MinRequests: 2, OpenTimeout: 10 * time.Second, HalfOpenMax: 1})
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, fail))
	require.Error(t, b.Execute(ctx, fail))
	require.Equal(t, StateOpen, b.State())

	*now = now.Add(11 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(Config{FailureRate: 0.5, MinRequests: 2, OpenTimeout: 10 * time.Second, HalfOpenMax: 1})
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, fail))
	require.Error(t, b.Execute(ctx, fail))
	*now = now.Add(11 * time.Second)

	assert.ErrorIs(t, b.Execute(ctx, fail), errProvider)
	assert.Equal(t, StateOpen, b.State())

	// 重新打开后继续拒绝
	assert.ErrorIs(t, b.Execute(ctx, ok), ErrOpen)
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	b, now := newTestBreaker(Config{FailureRate: 0.5, MinRequests: 2, OpenTimeout: 10 * time.Second, HalfOpenMax: 1})
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, fail))
	require.Error(t, b.Execute(ctx, fail))
	*now = now.Add(11 * time.Second)

	// 探测进行中时并发的第二个请求被拒绝
	err := b.Execute(ctx, func(ctx context.Context) error {
		return b.Execute(ctx, ok)
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}

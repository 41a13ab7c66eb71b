package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirst_ReturnsFirstSuccess(t *testing.T) {
	var tried []string
	got, err := First(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, s string) error {
		tried = append(tried, s)
		if s == "b" {
			return nil
		}
		return errors.New("nope")
	})

	require.NoError(t, err)
	assert.Equal(t, "b", got)
	assert.Equal(t, []string{"a", "b"}, tried)
}

func TestFirst_JoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	_, err := First(context.Background(), []error{errA, errB}, func(_ context.Context, e error) error {
		return e
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestFirst_Empty(t *testing.T) {
	_, err := First(context.Background(), nil, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestFirst_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := First(ctx, []int{1, 2}, func(context.Context, int) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

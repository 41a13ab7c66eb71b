package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Code: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return &StatusError{Code: 403, Body: "forbidden"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NotErrorIs(t, err, ErrMaxAttemptsExceeded)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return errors.New("read: connection reset by peer")
	})
	require.ErrorIs(t, err, ErrMaxAttemptsExceeded)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, calls)
}

func TestDo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	err := Do(ctx, cfg, func(context.Context) error {
		cancel()
		return &StatusError{Code: 429}
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDefaultIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 502}, true},
		{"bad request", &StatusError{Code: 400}, false},
		{"timeout", errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{"canceled", context.Canceled, false},
		{"other", errors.New("invalid json"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultIsRetryable(tt.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, Backoff(cfg, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(cfg, 3))
	assert.Equal(t, time.Second, Backoff(cfg, 10))
}

func TestNotDelivered(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 502}, false},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), true},
		{"timeout", errors.New("Client.Timeout exceeded while awaiting headers"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NotDelivered(tt.err))
		})
	}
}

func TestDo_ForWritesStopsOnServerError(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	err := Do(context.Background(), cfg.ForWrites(), func(context.Context) error {
		calls++
		return &StatusError{Code: 502}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/models"
)

func TestTrigger_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	s := New(func(ctx context.Context, p models.Platform) error {
		runs.Add(1)
		if p == models.PlatformReddit {
			close(started)
			<-release
		}
		return nil
	}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, s.Trigger(context.Background(), models.PlatformReddit))
	}()
	<-started

	assert.False(t, s.Trigger(context.Background(), models.PlatformReddit), "same platform must not overlap")
	assert.False(t, s.Trigger(context.Background(), models.PlatformYouTube), "other platforms wait for the running session")
	assert.Equal(t, models.PlatformReddit, s.running())

	close(release)
	wg.Wait()
	assert.Empty(t, s.running())
	assert.True(t, s.Trigger(context.Background(), models.PlatformYouTube), "lock is released after the run")
	assert.True(t, s.Trigger(context.Background(), models.PlatformReddit))
	assert.Equal(t, int32(3), runs.Load())
}

func TestTrigger_ConcurrentPlatformsNeverOverlap(t *testing.T) {
	var inFlight, peak atomic.Int32
	s := New(func(ctx context.Context, p models.Platform) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}, nil)

	platforms := []models.Platform{models.PlatformReddit, models.PlatformYouTube, models.PlatformLinkedIn, models.PlatformQuora}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(p models.Platform) {
			defer wg.Done()
			s.Trigger(context.Background(), p)
		}(platforms[i%len(platforms)])
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestTrigger_RecoversPanics(t *testing.T) {
	s := New(func(context.Context, models.Platform) error {
		panic("boom")
	}, nil)

	assert.True(t, s.Trigger(context.Background(), models.PlatformQuora))
	assert.True(t, s.Trigger(context.Background(), models.PlatformQuora), "lock is released after a panic")
}

func TestTrigger_ErrorIsLogged(t *testing.T) {
	s := New(func(context.Context, models.Platform) error {
		return errors.New("search failed")
	}, nil)
	assert.True(t, s.Trigger(context.Background(), models.PlatformLinkedIn))
}

func TestAdd(t *testing.T) {
	s := New(func(context.Context, models.Platform) error { return nil }, nil)

	require.NoError(t, s.Add(models.PlatformReddit, "0 */6 * * *"))
	require.Error(t, s.Add(models.PlatformReddit, "0 * * * *"), "duplicate platform")
	require.Error(t, s.Add(models.PlatformYouTube, "not a spec"))
	require.NoError(t, s.Add(models.PlatformYouTube, "@hourly"))
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := New(func(context.Context, models.Platform) error { return nil }, nil)
	require.NoError(t, s.Add(models.PlatformReddit, "@every 1h"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

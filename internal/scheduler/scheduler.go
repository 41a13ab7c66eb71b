// Package scheduler runs platform sessions on cron schedules. Only one
// session runs at a time across all platforms, since sessions share the
// history tracker, the database and the AI provider; a tick that finds
// another run in progress is skipped.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
)

// RunFunc runs one session for a platform.
type RunFunc func(ctx context.Context, platform models.Platform) error

type Scheduler struct {
	cron *cron.Cron
	run  RunFunc
	log  logger.Logger
	busy sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	entries map[models.Platform]cron.EntryID
	active  models.Platform
}

func New(run RunFunc, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		run:     run,
		log:     log,
		ctx:     context.Background(),
		entries: make(map[models.Platform]cron.EntryID),
	}
}

// Add schedules platform with a cron spec.
func (s *Scheduler) Add(platform models.Platform, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[platform]; ok {
		return fmt.Errorf("platform %s is already scheduled", platform)
	}
	id, err := s.cron.AddFunc(spec, func() { s.Trigger(s.context(), platform) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", platform, spec, err)
	}
	s.entries[platform] = id
	s.log.Info("Platform scheduled", logger.String("platform", string(platform)), logger.String("spec", spec))
	return nil
}

// Start runs the cron loop until ctx is cancelled, then waits for
// running sessions to return.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("Scheduler started", logger.Int("platforms", len(s.entries)))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// Trigger runs platform now unless any run is already in progress. It
// reports whether the run happened.
func (s *Scheduler) Trigger(ctx context.Context, platform models.Platform) bool {
	if !s.busy.TryLock() {
		s.log.Info("Run already in progress, skipping",
			logger.String("platform", string(platform)),
			logger.String("running", string(s.running())),
		)
		return false
	}
	defer s.busy.Unlock()

	s.setRunning(platform)
	defer s.setRunning("")
	s.safeRun(ctx, platform)
	return true
}

func (s *Scheduler) running() models.Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) setRunning(platform models.Platform) {
	s.mu.Lock()
	s.active = platform
	s.mu.Unlock()
}

func (s *Scheduler) safeRun(ctx context.Context, platform models.Platform) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Panic in platform run",
				logger.String("platform", string(platform)),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := s.run(ctx, platform); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("Platform run failed", logger.String("platform", string(platform)), logger.Error(err))
	}
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

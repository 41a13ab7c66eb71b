// Package session runs one platform pass: search each query, filter the
// targets, run a selection cycle per target and publish what is accepted.
// Targets are processed one at a time with fixed pauses in between.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/thinkscotty/outreach/internal/history"
	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/metrics"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/relevance"
	"github.com/thinkscotty/outreach/internal/selection"
	"github.com/thinkscotty/outreach/internal/similarity"
)

// Skip reasons.
const (
	SkipProcessed        = "processed"
	SkipIrrelevant       = "irrelevant"
	SkipAlreadyCommented = "already_commented"
	SkipHistoryError     = "history_error"
)

// DryRunNote prefixes the error message of cycle logs written by a dry run.
const DryRunNote = "dry run"

// Source finds targets on a platform and checks for an existing comment.
type Source interface {
	Search(ctx context.Context, query string) ([]models.Target, error)
	// HasCommented reports whether the configured account already
	// commented on the target.
	HasCommented(ctx context.Context, t models.Target) (bool, error)
}

// Publisher posts (or records) an accepted comment.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, t models.Target, text string) error
}

// Selector runs one selection cycle.
type Selector interface {
	Run(ctx context.Context, t models.Target) (*selection.Outcome, error)
}

// Recorder persists published comments and cycle logs.
type Recorder interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	LogGeneration(ctx context.Context, g *models.GenerationLog) error
}

// Config controls pacing and limits.
type Config struct {
	PauseBetweenTargets time.Duration `yaml:"pause_between_targets"`
	PauseBetweenQueries time.Duration `yaml:"pause_between_queries"`
	// MaxTargets caps how many targets reach generation per run; 0 is unlimited.
	MaxTargets     int  `yaml:"max_targets"`
	ShuffleQueries bool `yaml:"shuffle_queries"`
	// DryRun leaves the history tracker and stored comments untouched so a
	// later real run sees the same targets. Cycle logs are still written,
	// tagged with DryRunNote.
	DryRun bool `yaml:"dry_run"`
}

func DefaultConfig() Config {
	return Config{
		PauseBetweenTargets: 60 * time.Second,
		PauseBetweenQueries: 5 * time.Minute,
		MaxTargets:          10,
		ShuffleQueries:      true,
	}
}

// Deps are the collaborators of a session. Classifier, Checker, Recorder
// and Metrics are optional.
type Deps struct {
	Source     Source
	Publisher  Publisher
	Selector   Selector
	History    history.Tracker
	Classifier *relevance.Classifier
	Checker    *similarity.Checker
	Recorder   Recorder
	Metrics    *metrics.Metrics
	Log        logger.Logger
}

// Report summarizes a run.
type Report struct {
	RunID         string         `json:"run_id"`
	Platform      string         `json:"platform"`
	Queries       int            `json:"queries"`
	SearchErrors  int            `json:"search_errors"`
	Seen          int            `json:"seen"`
	Skipped       map[string]int `json:"skipped"`
	Cycles        int            `json:"cycles"`
	Accepted      int            `json:"accepted"`
	Exhausted     int            `json:"exhausted"`
	Published     int            `json:"published"`
	PublishFailed int            `json:"publish_failed"`
	TokensUsed    int            `json:"tokens_used"`
	Duration      time.Duration  `json:"duration"`
}

// Session is one platform run. It owns the set of targets handled during
// the run; History carries that knowledge across runs.
type Session struct {
	platform models.Platform
	cfg      Config
	deps     Deps
	log      logger.Logger

	runID     string
	processed map[string]bool
	sleep     func(context.Context, time.Duration) error
	shuffle   func([]string)
}

func New(platform models.Platform, cfg Config, deps Deps) *Session {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	if deps.History == nil {
		deps.History = history.NewMemory()
	}
	runID := uuid.NewString()
	return &Session{
		platform:  platform,
		cfg:       cfg,
		deps:      deps,
		log:       log.With(logger.String("platform", string(platform)), logger.String("run_id", runID)),
		runID:     runID,
		processed: make(map[string]bool),
		sleep:     sleepCtx,
		shuffle: func(q []string) {
			rand.Shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })
		},
	}
}

// RunID identifies this run in stored comments and logs.
func (s *Session) RunID() string { return s.runID }

// Run processes the queries. Only cancellation aborts it; per-target
// failures are logged and counted.
func (s *Session) Run(ctx context.Context, queries []string) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: s.runID, Platform: string(s.platform), Skipped: make(map[string]int)}
	defer s.deps.Metrics.SessionStarted(string(s.platform))()

	queries = append([]string(nil), queries...)
	if s.cfg.ShuffleQueries {
		s.shuffle(queries)
	}

	s.log.Info("Session started", logger.Int("queries", len(queries)), logger.Bool("dry_run", s.cfg.DryRun))

	var err error
	for i, q := range queries {
		if s.limitReached(rep) {
			break
		}
		if err = s.runQuery(ctx, q, rep); err != nil {
			break
		}
		if i < len(queries)-1 && !s.limitReached(rep) {
			if err = s.sleep(ctx, s.cfg.PauseBetweenQueries); err != nil {
				break
			}
		}
	}

	rep.Duration = time.Since(start)
	s.log.Info("Session finished",
		logger.Int("seen", rep.Seen),
		logger.Int("cycles", rep.Cycles),
		logger.Int("accepted", rep.Accepted),
		logger.Int("published", rep.Published),
		logger.Duration("duration", rep.Duration),
	)
	return rep, err
}

func (s *Session) limitReached(rep *Report) bool {
	return s.cfg.MaxTargets > 0 && rep.Cycles >= s.cfg.MaxTargets
}

func (s *Session) runQuery(ctx context.Context, query string, rep *Report) error {
	rep.Queries++
	targets, err := s.deps.Source.Search(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rep.SearchErrors++
		s.log.Warn("Search failed", logger.String("query", query), logger.Error(err))
		return nil
	}
	s.log.Debug("Search done", logger.String("query", query), logger.Int("targets", len(targets)))

	for _, t := range targets {
		if s.limitReached(rep) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Platform == "" {
			t.Platform = s.platform
		}
		if t.Query == "" {
			t.Query = query
		}
		rep.Seen++
		s.deps.Metrics.TargetSeen(string(s.platform))

		if reason := s.skipReason(ctx, t); reason != "" {
			rep.Skipped[reason]++
			s.deps.Metrics.TargetSkipped(string(s.platform), reason)
			s.log.Debug("Target skipped", logger.String("target", t.ID), logger.String("reason", reason))
			continue
		}

		if err := s.process(ctx, t, rep); err != nil {
			return err
		}
		if s.limitReached(rep) {
			return nil
		}
		if err := s.sleep(ctx, s.cfg.PauseBetweenTargets); err != nil {
			return err
		}
	}
	return nil
}

// skipReason returns why a target must not be processed, or "". Errors
// while checking count as already handled.
func (s *Session) skipReason(ctx context.Context, t models.Target) string {
	key := t.Key()
	if s.processed[key] {
		return SkipProcessed
	}
	s.processed[key] = true

	seen, err := s.deps.History.Seen(ctx, t)
	if err != nil {
		s.log.Warn("History check failed", logger.String("target", t.ID), logger.Error(err))
		return SkipHistoryError
	}
	if seen {
		return SkipProcessed
	}

	if s.deps.Classifier != nil && !s.deps.Classifier.Classify(t.Title, t.Body).Relevant {
		return SkipIrrelevant
	}

	commented, err := s.deps.Source.HasCommented(ctx, t)
	if err != nil {
		s.log.Warn("Existing comment check failed", logger.String("target", t.ID), logger.Error(err))
		return SkipAlreadyCommented
	}
	if commented {
		s.mark(ctx, t, SkipAlreadyCommented)
		return SkipAlreadyCommented
	}
	return ""
}

func (s *Session) process(ctx context.Context, t models.Target, rep *Report) error {
	rep.Cycles++
	out, err := s.deps.Selector.Run(ctx, t)
	if out == nil {
		out = &selection.Outcome{State: selection.StateExhausted}
	}
	rep.TokensUsed += out.TokensUsed
	s.deps.Metrics.CycleFinished(string(s.platform), string(out.State), out.Attempts, out.BestTotal(), out.TokensUsed)
	s.record(ctx, t, out, err)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		rep.Exhausted++
		s.log.Info("No acceptable comment", logger.String("target", t.ID), logger.Int("best_score", out.BestTotal()), logger.Error(err))
		if errors.Is(err, selection.ErrBudgetExhausted) {
			s.mark(ctx, t, string(selection.StateExhausted))
		}
		return nil
	}

	cand, _ := out.Candidate()
	rep.Accepted++

	pubErr := s.deps.Publisher.Publish(ctx, t, cand.Text)
	s.deps.Metrics.Published(string(s.platform), s.deps.Publisher.Name(), pubErr)
	if pubErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rep.PublishFailed++
		s.log.Error("Publish failed", logger.String("target", t.ID), logger.String("url", t.URL), logger.Error(pubErr))
		return nil
	}
	rep.Published++
	s.log.Info("Comment published",
		logger.String("target", t.ID),
		logger.String("url", t.URL),
		logger.Int("score", out.BestTotal()),
		logger.Int("attempts", out.Attempts),
		logger.String("publisher", s.deps.Publisher.Name()),
	)

	if s.deps.Recorder != nil && !s.cfg.DryRun {
		c := &models.Comment{
			RunID:      s.runID,
			Platform:   s.platform,
			TargetID:   t.ID,
			TargetURL:  t.URL,
			Content:    cand.Text,
			Score:      out.BestTotal(),
			AIProvider: cand.Provider,
			AIModel:    cand.Model,
			Publisher:  s.deps.Publisher.Name(),
		}
		if s.deps.Checker != nil {
			c.Trigrams = s.deps.Checker.Encode(s.deps.Checker.Trigrams(cand.Text))
		}
		if err := s.deps.Recorder.CreateComment(ctx, c); err != nil {
			s.log.Error("Failed to store comment", logger.String("target", t.ID), logger.Error(err))
		}
	}
	s.mark(ctx, t, "published")
	return nil
}

func (s *Session) record(ctx context.Context, t models.Target, out *selection.Outcome, err error) {
	if s.deps.Recorder == nil {
		return
	}
	entry := &models.GenerationLog{
		RunID:              s.runID,
		Platform:           s.platform,
		TargetID:           t.ID,
		State:              string(out.State),
		Attempts:           out.Attempts,
		GenerationFailures: out.GenerationFailures,
		ScoringFailures:    out.ScoringFailures,
		BestScore:          out.BestTotal(),
		TokensUsed:         out.TokensUsed,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if s.cfg.DryRun {
		if entry.ErrorMessage == "" {
			entry.ErrorMessage = DryRunNote
		} else {
			entry.ErrorMessage = DryRunNote + ": " + entry.ErrorMessage
		}
	}
	if lerr := s.deps.Recorder.LogGeneration(context.WithoutCancel(ctx), entry); lerr != nil {
		s.log.Error("Failed to log generation", logger.String("target", t.ID), logger.Error(lerr))
	}
}

func (s *Session) mark(ctx context.Context, t models.Target, outcome string) {
	if s.cfg.DryRun {
		return
	}
	if err := s.deps.History.Mark(context.WithoutCancel(ctx), t, outcome); err != nil {
		s.log.Error("Failed to mark target", logger.String("target", t.ID), logger.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

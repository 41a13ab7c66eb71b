// Package selection runs the scored candidate loop: generate a comment,
// score it, and either accept it, try again, or settle on the best
// candidate once the attempt budget is spent.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scoring"
)

var (
	// ErrGeneration marks an attempt whose generator call failed or
	// returned nothing.
	ErrGeneration = errors.New("generation failure")
	// ErrScoring marks an attempt whose scorer call failed.
	ErrScoring = errors.New("scoring failure")
	// ErrBudgetExhausted is returned when no candidate reached the minimum
	// acceptable score within the attempt budget.
	ErrBudgetExhausted = errors.New("attempt budget exhausted")
)

// AttemptError is a failure confined to one attempt.
type AttemptError struct {
	Attempt int
	Kind    error
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d: %v: %v", e.Attempt, e.Kind, e.Err)
}

func (e *AttemptError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Generator produces one candidate comment for a target.
type Generator interface {
	Generate(ctx context.Context, t models.Target) (models.Candidate, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, t models.Target) (models.Candidate, error)

func (f GeneratorFunc) Generate(ctx context.Context, t models.Target) (models.Candidate, error) {
	return f(ctx, t)
}

// Config holds the attempt budget and score thresholds.
type Config struct {
	MaxAttempts       int `yaml:"max_attempts"`
	Perfect           int `yaml:"perfect"`
	ContinueThreshold int `yaml:"continue_threshold"`
	MinAcceptable     int `yaml:"min_acceptable"`
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		Perfect:           70,
		ContinueThreshold: 50,
		MinAcceptable:     40,
	}
}

// Validate requires perfect > continue > min >= 0 and at least one attempt.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if !(c.Perfect > c.ContinueThreshold && c.ContinueThreshold > c.MinAcceptable && c.MinAcceptable >= 0) {
		return fmt.Errorf("thresholds must satisfy perfect > continue_threshold > min_acceptable >= 0, got %d > %d > %d",
			c.Perfect, c.ContinueThreshold, c.MinAcceptable)
	}
	return nil
}

// State is where a cycle ended.
type State string

const (
	StateAccepted  State = "accepted"
	StateExhausted State = "exhausted"
	StateCancelled State = "cancelled"
)

// Attempt is the trace of one attempt. Total is -1 when the attempt failed.
type Attempt struct {
	Number   int
	Total    int
	Rejected bool
	Err      error
}

// Outcome summarizes one cycle.
type Outcome struct {
	State State
	// Best is the accepted result, or the best non-rejected result seen when
	// the cycle did not accept.
	Best               *scoring.Result
	Attempts           int
	GenerationFailures int
	ScoringFailures    int
	TokensUsed         int
	Trace              []Attempt
}

// Accepted reports whether the cycle produced a comment to publish.
func (o *Outcome) Accepted() bool { return o.State == StateAccepted && o.Best != nil }

// Candidate returns the accepted candidate.
func (o *Outcome) Candidate() (models.Candidate, bool) {
	if !o.Accepted() {
		return models.Candidate{}, false
	}
	return o.Best.Candidate, true
}

// BestTotal is the best total seen, or 0.
func (o *Outcome) BestTotal() int {
	if o.Best == nil {
		return 0
	}
	return o.Best.Total
}

// Totals lists the per-attempt totals.
func (o *Outcome) Totals() []int {
	out := make([]int, len(o.Trace))
	for i, a := range o.Trace {
		out[i] = a.Total
	}
	return out
}

// Loop runs selection cycles. It holds no per-target state and may be reused.
type Loop struct {
	cfg    Config
	gen    Generator
	scorer scoring.Scorer
	log    logger.Logger
}

func New(cfg Config, gen Generator, scorer scoring.Scorer, log logger.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("selection config: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Loop{cfg: cfg, gen: gen, scorer: scorer, log: log}, nil
}

// Run executes one cycle for a target. On success the outcome is accepted.
// When no candidate qualifies it returns the outcome with ErrBudgetExhausted.
// Cancellation returns the outcome so far with ctx.Err().
func (l *Loop) Run(ctx context.Context, t models.Target) (*Outcome, error) {
	out := &Outcome{}
	log := l.log.With(logger.String("platform", string(t.Platform)), logger.String("target", t.ID))

	for out.Attempts < l.cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			out.State = StateCancelled
			return out, err
		}
		out.Attempts++
		n := out.Attempts

		cand, err := l.gen.Generate(ctx, t)
		if err == nil && strings.TrimSpace(cand.Text) == "" {
			err = errors.New("empty candidate")
		}
		out.TokensUsed += cand.TokensUsed
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.State = StateCancelled
				return out, ctxErr
			}
			out.GenerationFailures++
			l.fail(log, out, n, ErrGeneration, err)
			continue
		}

		res, err := l.scorer.Score(ctx, cand, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.State = StateCancelled
				return out, ctxErr
			}
			out.ScoringFailures++
			l.fail(log, out, n, ErrScoring, err)
			continue
		}
		out.Trace = append(out.Trace, Attempt{Number: n, Total: res.Total, Rejected: res.Rejected})
		log.Debug("Candidate scored",
			logger.Int("attempt", n),
			logger.Int("total", res.Total),
			logger.Bool("rejected", res.Rejected),
			logger.String("reason", res.Reason()),
		)

		if !res.Rejected && (out.Best == nil || res.Total > out.Best.Total) {
			best := res
			out.Best = &best
		}

		if !res.Rejected && res.Total >= l.cfg.Perfect && res.ExactlyOneLinked() {
			out.State = StateAccepted
			out.Best = &res
			return out, nil
		}
		if res.Total >= l.cfg.ContinueThreshold && !res.Rejected {
			break
		}
	}

	if out.Best != nil && out.Best.Total >= l.cfg.MinAcceptable {
		out.State = StateAccepted
		return out, nil
	}
	out.State = StateExhausted
	return out, ErrBudgetExhausted
}

func (l *Loop) fail(log logger.Logger, out *Outcome, n int, kind, err error) {
	aerr := &AttemptError{Attempt: n, Kind: kind, Err: err}
	out.Trace = append(out.Trace, Attempt{Number: n, Total: -1, Err: aerr})
	log.Warn("Selection attempt failed", logger.Int("attempt", n), logger.Error(aerr))
}

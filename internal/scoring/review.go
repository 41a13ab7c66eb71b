package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/thinkscotty/outreach/internal/models"
)

// ErrMalformedReview is returned when a review response does not match the
// expected shape. The text is data only and is never evaluated.
var ErrMalformedReview = errors.New("malformed review")

// ReviewScores are the reviewer's 1-10 ratings. RiskLevel is inverted:
// lower is safer.
type ReviewScores struct {
	Relevance       float64 `json:"relevance"`
	Professionalism float64 `json:"professionalism"`
	Naturalness     float64 `json:"naturalness"`
	ValueAdded      float64 `json:"value_added"`
	RiskLevel       float64 `json:"risk_level"`
}

// Average is the mean of the four quality ratings.
func (s ReviewScores) Average() float64 {
	return (s.Relevance + s.Professionalism + s.Naturalness + s.ValueAdded) / 4
}

// Review is the decoded LLM review of a comment.
type Review struct {
	Scores       ReviewScores `json:"scores"`
	ShouldRevise bool         `json:"should_revise"`
	Reason       string       `json:"reason"`
	Suggestions  string       `json:"suggestions,omitempty"`
}

type rawScores struct {
	Relevance       *float64 `json:"relevance"`
	Professionalism *float64 `json:"professionalism"`
	Naturalness     *float64 `json:"naturalness"`
	ValueAdded      *float64 `json:"value_added"`
	RiskLevel       *float64 `json:"risk_level"`
}

type rawReview struct {
	Scores       *rawScores `json:"scores"`
	ShouldRevise *bool      `json:"should_revise"`
	Reason       *string    `json:"reason"`
	Suggestions  string     `json:"suggestions"`
}

// DecodeReview parses a review response. Surrounding prose and code fences
// are tolerated; anything else about the object must be exact.
func DecodeReview(data []byte) (Review, error) {
	obj, ok := extractObject(data)
	if !ok {
		return Review{}, fmt.Errorf("%w: no JSON object found", ErrMalformedReview)
	}

	dec := json.NewDecoder(bytes.NewReader(obj))
	dec.DisallowUnknownFields()
	var raw rawReview
	if err := dec.Decode(&raw); err != nil {
		return Review{}, fmt.Errorf("%w: %v", ErrMalformedReview, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Review{}, fmt.Errorf("%w: trailing data", ErrMalformedReview)
	}

	if raw.Scores == nil {
		return Review{}, fmt.Errorf("%w: missing scores", ErrMalformedReview)
	}
	if raw.ShouldRevise == nil {
		return Review{}, fmt.Errorf("%w: missing should_revise", ErrMalformedReview)
	}
	if raw.Reason == nil || *raw.Reason == "" {
		return Review{}, fmt.Errorf("%w: missing reason", ErrMalformedReview)
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"relevance", raw.Scores.Relevance},
		{"professionalism", raw.Scores.Professionalism},
		{"naturalness", raw.Scores.Naturalness},
		{"value_added", raw.Scores.ValueAdded},
		{"risk_level", raw.Scores.RiskLevel},
	}
	for _, f := range fields {
		if f.v == nil {
			return Review{}, fmt.Errorf("%w: missing score %s", ErrMalformedReview, f.name)
		}
		if *f.v < 1 || *f.v > 10 {
			return Review{}, fmt.Errorf("%w: score %s=%v outside [1, 10]", ErrMalformedReview, f.name, *f.v)
		}
	}

	return Review{
		Scores: ReviewScores{
			Relevance:       *raw.Scores.Relevance,
			Professionalism: *raw.Scores.Professionalism,
			Naturalness:     *raw.Scores.Naturalness,
			ValueAdded:      *raw.Scores.ValueAdded,
			RiskLevel:       *raw.Scores.RiskLevel,
		},
		ShouldRevise: *raw.ShouldRevise,
		Reason:       *raw.Reason,
		Suggestions:  raw.Suggestions,
	}, nil
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(data []byte) ([]byte, bool) {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return data[start : end+1], true
}

// Reviewer asks an LLM to judge a comment.
type Reviewer interface {
	ReviewComment(ctx context.Context, t models.Target, text string) (Review, error)
}

type reviewed struct {
	base     Scorer
	reviewer Reviewer
	cfg      ReviewConfig
}

// Reviewed runs base and then an LLM review. A review that asks for
// revision, rates risk above cfg.MaxRisk or averages below cfg.MinAverage
// turns the result into a rejection. Rejected base results are not reviewed.
func Reviewed(base Scorer, reviewer Reviewer, cfg ReviewConfig) Scorer {
	return &reviewed{base: base, reviewer: reviewer, cfg: cfg}
}

func (s *reviewed) Score(ctx context.Context, c models.Candidate, t models.Target) (Result, error) {
	res, err := s.base.Score(ctx, c, t)
	if err != nil || res.Rejected {
		return res, err
	}

	rv, err := s.reviewer.ReviewComment(ctx, t, res.Candidate.Text)
	if err != nil {
		return Result{}, fmt.Errorf("review comment: %w", err)
	}
	switch {
	case rv.ShouldRevise:
		return res.reject(ReasonReview + ": " + rv.Reason), nil
	case s.cfg.MaxRisk > 0 && rv.Scores.RiskLevel > s.cfg.MaxRisk:
		return res.reject(fmt.Sprintf("%s: risk %.1f", ReasonReview, rv.Scores.RiskLevel)), nil
	case s.cfg.MinAverage > 0 && rv.Scores.Average() < s.cfg.MinAverage:
		return res.reject(fmt.Sprintf("%s: average %.1f", ReasonReview, rv.Scores.Average())), nil
	}
	return res, nil
}

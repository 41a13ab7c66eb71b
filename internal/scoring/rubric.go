// Package scoring evaluates generated comments against a weighted rubric.
// The rubric is deterministic; optional LLM review and duplicate checks are
// layered on top as composed scorers.
package scoring

import (
	"context"
	"strings"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/relevance"
)

// Criterion names used as keys of Result.Criteria.
const (
	CriterionLength          = "length"
	CriterionNoDirectAddress = "no_direct_address"
	CriterionNoPlatitude     = "no_platitude"
	CriterionMarker          = "marker"
	CriterionNoPromotional   = "no_promotional"
	CriterionNoFormal        = "no_formal"
)

// Penalty reasons.
const (
	ReasonLength         = "length"
	ReasonDirectAddress  = "direct_address"
	ReasonPlatitude      = "platitude"
	ReasonMarkerRepeated = "marker_repeated"
	ReasonMarkerMissing  = "marker_missing"
	ReasonPromotional    = "promotional"
	ReasonFormal         = "formal"
	ReasonReview         = "review"
	ReasonDuplicate      = "duplicate"
)

// Result is the evaluation of one candidate.
type Result struct {
	// Candidate is the measured candidate the result was computed for.
	Candidate models.Candidate `json:"candidate"`

	Criteria map[string]int `json:"criteria"`
	Total    int            `json:"total"`
	OnTopic  bool           `json:"on_topic"`

	Occurrences int `json:"occurrences"`
	Linked      int `json:"linked"`
	// PlainText is set when a plain mention counts as the ideal marker.
	PlainText bool `json:"plain_text,omitempty"`

	// Rejected results never count as best, whatever their total.
	Rejected bool     `json:"rejected"`
	Reasons  []string `json:"reasons,omitempty"`
}

// ExactlyOneLinked reports a single marker occurrence that is linked, or
// unlinked when PlainText is set.
func (r Result) ExactlyOneLinked() bool {
	if r.PlainText {
		return r.Occurrences == 1 && r.Linked == 0
	}
	return r.Occurrences == 1 && r.Linked == 1
}

// Reason lists the penalties, comma separated.
func (r Result) Reason() string {
	return strings.Join(r.Reasons, ",")
}

// reject zeroes the result and records why.
func (r Result) reject(reason string) Result {
	r.Rejected = true
	r.Total = 0
	r.Reasons = append(r.Reasons, reason)
	return r
}

// Scorer evaluates a candidate for a target.
type Scorer interface {
	Score(ctx context.Context, c models.Candidate, t models.Target) (Result, error)
}

// Rubric is the deterministic scorer.
type Rubric struct {
	cfg        Config
	meter      *Meter
	classifier *relevance.Classifier
}

// NewRubric builds a rubric. The classifier decides whether a target is
// on-topic for the marker criterion.
func NewRubric(cfg Config, classifier *relevance.Classifier) *Rubric {
	return &Rubric{cfg: cfg, meter: NewMeter(cfg), classifier: classifier}
}

// Perfect is the rubric's maximum total.
func (r *Rubric) Perfect() int { return r.cfg.Perfect() }

// Score implements Scorer. It never fails.
func (r *Rubric) Score(_ context.Context, c models.Candidate, t models.Target) (Result, error) {
	return r.Evaluate(c, t), nil
}

// Evaluate measures and scores a candidate.
func (r *Rubric) Evaluate(c models.Candidate, t models.Target) Result {
	c = r.meter.Measure(c, t)
	p := r.cfg.Points

	res := Result{
		Candidate:   c,
		Criteria:    make(map[string]int, 6),
		Occurrences: c.Occurrences,
		Linked:      c.Linked,
	}
	if r.classifier != nil {
		res.OnTopic = r.classifier.Classify(t.Title, t.Body).OnTopic
	}
	res.PlainText = r.cfg.PlainTextCredit && res.OnTopic && !t.Platform.RendersLinks()

	switch {
	case c.Length < r.cfg.MinLength || c.Length > r.cfg.MaxLength:
		res.Criteria[CriterionLength] = 0
		return res.reject(ReasonLength)
	case c.Length <= r.cfg.ConciseMax:
		res.Criteria[CriterionLength] = p.Concise
	case c.Length <= r.cfg.ModerateMax:
		res.Criteria[CriterionLength] = p.Moderate
	default:
		res.Criteria[CriterionLength] = p.InWindow
	}

	res.Criteria[CriterionNoDirectAddress] = r.flag(&res, c.DirectAddress, p.NoDirectAddress, ReasonDirectAddress)
	res.Criteria[CriterionNoPlatitude] = r.flag(&res, c.Platitude, p.NoPlatitude, ReasonPlatitude)
	res.Criteria[CriterionMarker] = r.markerPoints(&res, c)
	res.Criteria[CriterionNoPromotional] = r.flag(&res, c.Promotional, p.NoPromotional, ReasonPromotional)
	res.Criteria[CriterionNoFormal] = r.flag(&res, c.Formal, p.NoFormal, ReasonFormal)

	for _, v := range res.Criteria {
		res.Total += v
	}
	return res
}

func (r *Rubric) flag(res *Result, hit bool, points int, reason string) int {
	if hit {
		res.Reasons = append(res.Reasons, reason)
		return 0
	}
	return points
}

func (r *Rubric) markerPoints(res *Result, c models.Candidate) int {
	p := r.cfg.Points
	if c.Occurrences > 1 {
		res.Reasons = append(res.Reasons, ReasonMarkerRepeated)
		return 0
	}
	linked := c.Occurrences == 1 && c.Linked == 1
	if res.OnTopic {
		switch {
		case c.Occurrences == 0:
			res.Reasons = append(res.Reasons, ReasonMarkerMissing)
			return p.OnTopicNone
		case res.PlainText:
			if c.Linked == 0 {
				return p.OnTopicLinked
			}
			return p.OnTopicUnlinked
		case linked:
			return p.OnTopicLinked
		default:
			return p.OnTopicUnlinked
		}
	}
	switch {
	case c.Occurrences == 0:
		return p.OffTopicNone
	case linked:
		return p.OffTopicLinked
	default:
		return p.OffTopicUnlinked
	}
}

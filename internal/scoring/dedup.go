package scoring

import (
	"context"
	"fmt"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/similarity"
)

// HistoryFunc returns the stored n-grams of previously published comments
// for a platform.
type HistoryFunc func(ctx context.Context, p models.Platform) ([]similarity.StoredTrigrams, error)

type deduplicated struct {
	base    Scorer
	checker *similarity.Checker
	history HistoryFunc
}

// Deduplicated rejects candidates too similar to earlier comments.
func Deduplicated(base Scorer, checker *similarity.Checker, history HistoryFunc) Scorer {
	return &deduplicated{base: base, checker: checker, history: history}
}

func (s *deduplicated) Score(ctx context.Context, c models.Candidate, t models.Target) (Result, error) {
	res, err := s.base.Score(ctx, c, t)
	if err != nil || res.Rejected {
		return res, err
	}
	existing, err := s.history(ctx, t.Platform)
	if err != nil {
		return Result{}, fmt.Errorf("load comment history: %w", err)
	}
	if match, ok := s.checker.MostSimilar(res.Candidate.Text, existing); ok {
		return res.reject(fmt.Sprintf("%s: comment %d", ReasonDuplicate, match.ID)), nil
	}
	return res, nil
}

// Package scorer computes per-signal quality scores from the pattern library
// and secondary heuristics.
package scorer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/patterns"
)

const (
	// BaselineScore is the neutral starting score for every signal.
	BaselineScore = 0.5
	// QualityThreshold is the minimum score a signal needs to reach the clusterer.
	QualityThreshold = 0.5
)

// Secondary adjustment bounds and increments.
const (
	lowRatingMax        = 2.5
	borderlineRatingMax = 3.5
	highReviewCount     = 100
	mediumReviewCount   = 50

	lowRatingBonus        = 0.15
	borderlineRatingBonus = 0.05
	highReviewBonus       = 0.10
	mediumReviewBonus     = 0.05
	coordinatesBonus      = 0.05
)

// Scorer scores raw signals against a pattern library.
type Scorer struct {
	lib *patterns.Library
}

// New creates a Scorer over the given library.
func New(lib *patterns.Library) *Scorer {
	return &Scorer{lib: lib}
}

// Score applies every pattern rule plus the secondary heuristics to one
// signal. A matching rule raises the score to at least its own confidence
// (max, not additive) so stacked weak matches cannot outclaim a single
// strong rule.
func (s *Scorer) Score(sig model.RawSignal) model.ScoredSignal {
	text := sig.Text()
	score := BaselineScore
	var matches []model.PatternMatch

	// Sorted category order keeps the match list deterministic.
	cats := make([]string, 0, len(s.lib.Categories))
	for c := range s.lib.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	for _, category := range cats {
		for _, rule := range s.lib.Categories[category] {
			if !rule.Match(text) {
				continue
			}
			matches = append(matches, model.PatternMatch{
				Category: category,
				Pattern:  rule.Pattern,
				Weight:   rule.Confidence,
			})
			if rule.Confidence > score {
				score = rule.Confidence
			}
		}
	}

	score += secondaryAdjustments(&sig)
	score = clamp01(score)

	category := s.lib.CategoryFor(text, sig.CategoryHint())

	zap.L().Debug("scorer: signal scored",
		zap.Int64("signal_id", sig.ID),
		zap.Float64("score", score),
		zap.String("category", category),
		zap.Int("matches", len(matches)),
	)

	return model.ScoredSignal{
		Signal:       sig,
		QualityScore: score,
		Category:     category,
		Matches:      matches,
	}
}

// secondaryAdjustments returns the cumulative bonus from rating, review
// count, and coordinate presence.
func secondaryAdjustments(sig *model.RawSignal) float64 {
	adj := 0.0

	if sig.Rating != nil {
		switch {
		case *sig.Rating <= lowRatingMax:
			adj += lowRatingBonus
		case *sig.Rating <= borderlineRatingMax:
			adj += borderlineRatingBonus
		}
	}

	if sig.ReviewCount != nil {
		switch {
		case *sig.ReviewCount >= highReviewCount:
			adj += highReviewBonus
		case *sig.ReviewCount >= mediumReviewCount:
			adj += mediumReviewBonus
		}
	}

	if sig.HasCoordinates() {
		adj += coordinatesBonus
	}

	return adj
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

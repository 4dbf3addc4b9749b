// Package cluster groups scored signals into clusters with a greedy
// single-pass algorithm over a pluggable pairwise similarity function.
package cluster

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/Nardo758/Project-Spark-sub000/internal/geo"
	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

// Similarity scores a pair of signals in [0,1]. Implementations must be
// symmetric and deterministic; the greedy clusterer relies on both.
type Similarity interface {
	Score(a, b *model.ScoredSignal) float64
}

// Weights and caps for the default similarity. Each term is independently
// capped at its weight; the terms sum to 1.0.
const (
	categoryWeight  = 0.40
	geographyWeight = 0.30 // same city
	proximityWeight = 0.15 // coordinates within proximityMaxKM
	keywordWeight   = 0.20
	recencyWeight   = 0.10

	proximityMaxKM = 25.0
	recencyWindow  = 30 * 24 * time.Hour
)

// Weighted is the default similarity: a weighted sum of category equality,
// geography, keyword overlap, and capture recency.
type Weighted struct {
	folder cases.Caser
}

// NewWeighted returns the default similarity function.
func NewWeighted() *Weighted {
	return &Weighted{folder: cases.Fold()}
}

// Score computes the pairwise similarity of two signals.
func (w *Weighted) Score(a, b *model.ScoredSignal) float64 {
	score := 0.0

	if a.Category == b.Category {
		score += categoryWeight
	}

	score += w.geographyTerm(a, b)
	score += keywordWeight * w.keywordOverlap(a, b)
	score += recencyWeight * recencyTerm(a.Signal.CapturedAt, b.Signal.CapturedAt)

	return score
}

// geographyTerm gives full credit for a matching city and partial credit
// for coordinate proximity when the city strings disagree or are missing.
func (w *Weighted) geographyTerm(a, b *model.ScoredSignal) float64 {
	cityA := w.normalizeCity(a.Signal.City)
	cityB := w.normalizeCity(b.Signal.City)
	if cityA != "" && cityA == cityB {
		return geographyWeight
	}

	if a.Signal.HasCoordinates() && b.Signal.HasCoordinates() {
		d := geo.HaversineKM(*a.Signal.Latitude, *a.Signal.Longitude, *b.Signal.Latitude, *b.Signal.Longitude)
		if d <= proximityMaxKM {
			return proximityWeight
		}
	}

	return 0
}

func (w *Weighted) normalizeCity(city string) string {
	return w.folder.String(strings.TrimSpace(city))
}

// keywordOverlap returns shared words over the larger word set, in [0,1].
func (w *Weighted) keywordOverlap(a, b *model.ScoredSignal) float64 {
	wordsA := w.wordSet(a.Signal.Text())
	wordsB := w.wordSet(b.Signal.Text())
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}

	shared := 0
	for word := range wordsA {
		if _, ok := wordsB[word]; ok {
			shared++
		}
	}

	return float64(shared) / float64(larger)
}

func (w *Weighted) wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(w.folder.String(text)) {
		tok = strings.Trim(tok, ".,!?;:()[]\"'")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

// recencyTerm decays linearly from 1 to 0 over the 30-day window between
// capture timestamps. Missing timestamps contribute nothing.
func recencyTerm(a, b *time.Time) float64 {
	if a == nil || b == nil {
		return 0
	}
	gap := a.Sub(*b)
	if gap < 0 {
		gap = -gap
	}
	if gap >= recencyWindow {
		return 0
	}
	return 1 - float64(gap)/float64(recencyWindow)
}

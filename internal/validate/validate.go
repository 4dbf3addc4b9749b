// Package validate scores clusters against a fixed weighted rubric and
// assigns confidence tiers.
package validate

import (
	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/patterns"
)

// Criterion weights. They sum to 1.0; the weighted sum is the validation
// score.
const (
	weightSignalCount     = 0.25
	weightSignalQuality   = 0.25
	weightLocation        = 0.15
	weightCategory        = 0.10
	weightMonetization    = 0.15
	weightTemporalSpread  = 0.05
	weightSourceDiversity = 0.05
)

// Tier thresholds. A cluster passes at WEAK_SIGNAL or better.
const (
	goldmineThreshold   = 0.85
	validatedThreshold  = 0.60
	weakSignalThreshold = 0.40
)

// sourceDiversityTarget is the distinct-source count worth full credit.
const sourceDiversityTarget = 3.0

// Validator scores clusters. The flags it emits are informational only and
// never feed back into the score.
type Validator struct {
	lib *patterns.Library
}

// New creates a Validator over the given library.
func New(lib *patterns.Library) *Validator {
	return &Validator{lib: lib}
}

// Validate scores a cluster against the seven-criterion rubric and assigns
// the highest tier whose threshold the score meets.
func (v *Validator) Validate(idea model.BusinessIdea, cluster *model.Cluster, loc model.LocationResolution) model.ValidationResult {
	breakdown := map[string]float64{
		"signal_count":     scoreSignalCount(cluster.Size()),
		"signal_quality":   scoreSignalQuality(cluster),
		"location":         loc.Confidence,
		"category":         scoreCategory(idea.Category),
		"monetization":     v.scoreMonetization(cluster),
		"temporal_spread":  scoreTemporalSpread(cluster),
		"source_diversity": scoreSourceDiversity(cluster),
	}

	score := weightSignalCount*breakdown["signal_count"] +
		weightSignalQuality*breakdown["signal_quality"] +
		weightLocation*breakdown["location"] +
		weightCategory*breakdown["category"] +
		weightMonetization*breakdown["monetization"] +
		weightTemporalSpread*breakdown["temporal_spread"] +
		weightSourceDiversity*breakdown["source_diversity"]

	tier := TierFor(score)

	result := model.ValidationResult{
		Passed:    tier != model.TierNoise,
		Score:     score,
		Tier:      tier,
		Breakdown: breakdown,
	}
	result.PositiveFlags, result.NegativeFlags = flags(breakdown, cluster.Size())

	zap.L().Debug("validate: cluster scored",
		zap.Float64("score", score),
		zap.String("tier", string(tier)),
		zap.Bool("passed", result.Passed),
		zap.Int("signals", cluster.Size()),
	)

	return result
}

// TierFor returns the highest tier whose threshold the score meets.
func TierFor(score float64) model.ConfidenceTier {
	switch {
	case score >= goldmineThreshold:
		return model.TierGoldmine
	case score >= validatedThreshold:
		return model.TierValidated
	case score >= weakSignalThreshold:
		return model.TierWeakSignal
	default:
		return model.TierNoise
	}
}

func scoreSignalCount(n int) float64 {
	switch {
	case n >= 5:
		return 1.0
	case n >= 3:
		return 0.7
	case n >= 1:
		return 0.4
	default:
		return 0
	}
}

func scoreSignalQuality(cluster *model.Cluster) float64 {
	if cluster.Size() == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range cluster.Signals {
		sum += s.QualityScore
	}
	return sum / float64(cluster.Size())
}

func scoreCategory(category string) float64 {
	if category != "" && category != patterns.GeneralCategory {
		return 1.0
	}
	return 0.3
}

// scoreMonetization returns the fraction of signals mentioning
// price-related terms.
func (v *Validator) scoreMonetization(cluster *model.Cluster) float64 {
	if cluster.Size() == 0 {
		return 0
	}
	hits := 0
	for _, s := range cluster.Signals {
		if v.lib.MentionsMonetization(s.Signal.Text()) {
			hits++
		}
	}
	return float64(hits) / float64(cluster.Size())
}

func scoreTemporalSpread(cluster *model.Cluster) float64 {
	for _, s := range cluster.Signals {
		if s.Signal.CapturedAt != nil {
			return 1.0
		}
	}
	return 0.5
}

func scoreSourceDiversity(cluster *model.Cluster) float64 {
	sources := make(map[string]struct{})
	for _, s := range cluster.Signals {
		sources[s.Signal.Source] = struct{}{}
	}
	d := float64(len(sources)) / sourceDiversityTarget
	if d > 1 {
		return 1
	}
	return d
}

// flags derives human-readable notes from the breakdown. Informational
// only.
func flags(breakdown map[string]float64, size int) (positive, negative []string) {
	if breakdown["signal_count"] >= 1.0 {
		positive = append(positive, "strong signal volume")
	} else if breakdown["signal_count"] <= 0.4 {
		negative = append(negative, "few supporting signals")
	}
	if breakdown["signal_quality"] >= 0.7 {
		positive = append(positive, "high average signal quality")
	}
	if breakdown["location"] >= 0.8 {
		positive = append(positive, "well-localized evidence")
	} else if breakdown["location"] == 0 {
		negative = append(negative, "no location data")
	}
	if breakdown["monetization"] >= 0.5 {
		positive = append(positive, "willingness to pay mentioned")
	}
	if breakdown["category"] < 1.0 {
		negative = append(negative, "no specific category identified")
	}
	if size == 1 {
		negative = append(negative, "single-signal cluster")
	}
	return positive, negative
}

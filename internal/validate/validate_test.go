package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/patterns"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		score float64
		want  model.ConfidenceTier
	}{
		{0.90, model.TierGoldmine},
		{0.85, model.TierGoldmine},
		{0.84, model.TierValidated},
		{0.60, model.TierValidated},
		{0.59, model.TierWeakSignal},
		{0.40, model.TierWeakSignal},
		{0.39, model.TierNoise},
		{0.0, model.TierNoise},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.score), "score %.2f", tc.score)
	}
}

func TestScoreSignalCountBands(t *testing.T) {
	assert.InDelta(t, 1.0, scoreSignalCount(6), 0.001)
	assert.InDelta(t, 1.0, scoreSignalCount(5), 0.001)
	assert.InDelta(t, 0.7, scoreSignalCount(3), 0.001)
	assert.InDelta(t, 0.4, scoreSignalCount(1), 0.001)
	assert.Zero(t, scoreSignalCount(0))
}

// A cluster of 6 restaurant signals in Austin with coordinates, half
// mentioning price, must land in the VALIDATED band or better.
func TestValidateAustinRestaurantCluster(t *testing.T) {
	v := New(patterns.Default())
	now := time.Now()

	cluster := &model.Cluster{}
	for i := 0; i < 6; i++ {
		content := "no good vegan restaurant around"
		if i < 3 {
			content += " and I would pay any price for one"
		}
		cluster.Signals = append(cluster.Signals, model.ScoredSignal{
			Signal: model.RawSignal{
				ID:         int64(i + 1),
				Source:     "reviews",
				City:       "Austin",
				State:      "TX",
				Latitude:   ptrFloat(30.26 + float64(i)*0.002),
				Longitude:  ptrFloat(-97.74),
				Content:    content,
				CapturedAt: ptrTime(now),
			},
			QualityScore: 0.8,
			Category:     "restaurant",
		})
	}

	idea := model.BusinessIdea{Category: "restaurant"}
	loc := model.LocationResolution{City: "Austin", Confidence: 0.9, SignalCount: 6}

	result := v.Validate(idea, cluster, loc)

	assert.True(t, result.Passed)
	assert.GreaterOrEqual(t, result.Score, 0.60)
	assert.Contains(t, []model.ConfidenceTier{model.TierValidated, model.TierGoldmine}, result.Tier)

	assert.InDelta(t, 1.0, result.Breakdown["signal_count"], 0.001)
	assert.InDelta(t, 0.9, result.Breakdown["location"], 0.001)
	assert.InDelta(t, 0.5, result.Breakdown["monetization"], 0.001)
}

// A lone unlocated, uncategorized signal must fall below 0.40 and fail as
// NOISE.
func TestValidateLoneWeakSignal(t *testing.T) {
	v := New(patterns.Default())

	cluster := &model.Cluster{Signals: []model.ScoredSignal{{
		Signal:       model.RawSignal{ID: 1, Source: "forum", Content: "meh nothing works"},
		QualityScore: 0.5,
		Category:     patterns.GeneralCategory,
	}}}

	idea := model.BusinessIdea{Category: patterns.GeneralCategory}
	loc := model.LocationResolution{City: "Unknown", Confidence: 0}

	result := v.Validate(idea, cluster, loc)

	assert.False(t, result.Passed)
	assert.Less(t, result.Score, 0.40)
	assert.Equal(t, model.TierNoise, result.Tier)

	assert.InDelta(t, 0.4, result.Breakdown["signal_count"], 0.001)
	assert.Zero(t, result.Breakdown["location"])
	assert.InDelta(t, 0.3, result.Breakdown["category"], 0.001)
}

func TestValidatePassedMatchesThreshold(t *testing.T) {
	// Passed must be true exactly when the score reaches the WEAK_SIGNAL
	// threshold, across a spread of cluster shapes.
	v := New(patterns.Default())

	shapes := []*model.Cluster{
		{Signals: []model.ScoredSignal{
			{Signal: model.RawSignal{Source: "a", Content: "x"}, QualityScore: 0.5, Category: "general"},
		}},
		{Signals: []model.ScoredSignal{
			{Signal: model.RawSignal{Source: "a", City: "Austin", Content: "price hike"}, QualityScore: 0.9, Category: "restaurant"},
			{Signal: model.RawSignal{Source: "b", City: "Austin", Content: "expensive food"}, QualityScore: 0.8, Category: "restaurant"},
			{Signal: model.RawSignal{Source: "c", City: "Austin", Content: "costly menu"}, QualityScore: 0.85, Category: "restaurant"},
		}},
	}

	for _, cluster := range shapes {
		idea := model.BusinessIdea{Category: cluster.Category()}
		loc := model.LocationResolution{Confidence: 0.7}
		result := v.Validate(idea, cluster, loc)
		assert.Equal(t, result.Score >= 0.40, result.Passed)
		assert.Equal(t, TierFor(result.Score), result.Tier)
	}
}

func TestValidateTemporalSpread(t *testing.T) {
	now := time.Now()

	withTS := &model.Cluster{Signals: []model.ScoredSignal{
		{Signal: model.RawSignal{CapturedAt: ptrTime(now)}},
	}}
	withoutTS := &model.Cluster{Signals: []model.ScoredSignal{
		{Signal: model.RawSignal{}},
	}}

	assert.InDelta(t, 1.0, scoreTemporalSpread(withTS), 0.001)
	assert.InDelta(t, 0.5, scoreTemporalSpread(withoutTS), 0.001)
}

func TestValidateSourceDiversity(t *testing.T) {
	mk := func(sources ...string) *model.Cluster {
		c := &model.Cluster{}
		for _, s := range sources {
			c.Signals = append(c.Signals, model.ScoredSignal{Signal: model.RawSignal{Source: s}})
		}
		return c
	}

	assert.InDelta(t, 1.0/3.0, scoreSourceDiversity(mk("a")), 0.001)
	assert.InDelta(t, 2.0/3.0, scoreSourceDiversity(mk("a", "b")), 0.001)
	assert.InDelta(t, 1.0, scoreSourceDiversity(mk("a", "b", "c")), 0.001)
	assert.InDelta(t, 1.0, scoreSourceDiversity(mk("a", "b", "c", "d")), 0.001, "capped at 1.0")
}

func TestFlagsDoNotAffectScore(t *testing.T) {
	v := New(patterns.Default())

	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		{Signal: model.RawSignal{Source: "a", Content: "x"}, QualityScore: 0.6, Category: "general"},
	}}
	idea := model.BusinessIdea{Category: "general"}
	loc := model.LocationResolution{Confidence: 0.5}

	result := v.Validate(idea, cluster, loc)
	recomputed := v.Validate(idea, cluster, loc)

	assert.Equal(t, result.Score, recomputed.Score)
	assert.NotEmpty(t, result.NegativeFlags)
}

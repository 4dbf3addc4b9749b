package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrTime(t time.Time) *time.Time {
	return &t
}

func sig(category, city, text string) model.ScoredSignal {
	return model.ScoredSignal{
		Signal:   model.RawSignal{City: city, Content: text},
		Category: category,
	}
}

func TestWeightedCategoryAndCity(t *testing.T) {
	w := NewWeighted()

	a := sig("restaurant", "Austin", "alpha beta gamma")
	b := sig("restaurant", "Austin", "delta epsilon zeta")

	// Category 0.40 + city 0.30; no shared words, no timestamps.
	got := w.Score(&a, &b)
	assert.InDelta(t, 0.70, got, 0.001)
}

func TestWeightedCityFoldsCase(t *testing.T) {
	w := NewWeighted()

	a := sig("restaurant", "AUSTIN", "x")
	b := sig("restaurant", "austin", "y")
	assert.InDelta(t, 0.70, w.Score(&a, &b), 0.001)
}

func TestWeightedProximityFallback(t *testing.T) {
	w := NewWeighted()

	austin := model.ScoredSignal{
		Signal:   model.RawSignal{City: "Austin", Latitude: ptrFloat(30.2672), Longitude: ptrFloat(-97.7431), Content: "b"},
		Category: "restaurant",
	}
	pflugerville := model.ScoredSignal{
		Signal:   model.RawSignal{City: "Pflugerville", Latitude: ptrFloat(30.4394), Longitude: ptrFloat(-97.6200), Content: "a"},
		Category: "restaurant",
	}
	waco := model.ScoredSignal{
		Signal:   model.RawSignal{City: "Waco", Latitude: ptrFloat(31.5493), Longitude: ptrFloat(-97.1467), Content: "a"},
		Category: "restaurant",
	}

	// Pflugerville-Austin ≈ 22km: proximity credit 0.15, not the full 0.30.
	assert.InDelta(t, 0.40+0.15, w.Score(&pflugerville, &austin), 0.001)

	// Waco-Austin ≈ 150km: no geography credit at all.
	assert.InDelta(t, 0.40, w.Score(&waco, &austin), 0.001)
}

func TestWeightedKeywordOverlap(t *testing.T) {
	w := NewWeighted()

	a := sig("restaurant", "", "vegan tacos downtown")
	b := sig("restaurant", "", "vegan tacos uptown late")

	// Shared {vegan, tacos} over larger set of 4 => 0.5 * 0.20 = 0.10.
	got := w.Score(&a, &b)
	assert.InDelta(t, 0.40+0.10, got, 0.001)
}

func TestWeightedRecencyDecay(t *testing.T) {
	w := NewWeighted()
	now := time.Now()

	mk := func(captured time.Time) model.ScoredSignal {
		return model.ScoredSignal{
			Signal:   model.RawSignal{Content: "same words", CapturedAt: ptrTime(captured)},
			Category: "restaurant",
		}
	}

	a := mk(now)

	t.Run("same day full credit", func(t *testing.T) {
		b := mk(now)
		// category 0.40 + keywords 0.20 + recency 0.10
		assert.InDelta(t, 0.70, w.Score(&a, &b), 0.001)
	})

	t.Run("15 days half credit", func(t *testing.T) {
		b := mk(now.Add(-15 * 24 * time.Hour))
		assert.InDelta(t, 0.65, w.Score(&a, &b), 0.001)
	})

	t.Run("30 days no credit", func(t *testing.T) {
		b := mk(now.Add(-30 * 24 * time.Hour))
		assert.InDelta(t, 0.60, w.Score(&a, &b), 0.001)
	})
}

func TestWeightedSymmetric(t *testing.T) {
	w := NewWeighted()
	a := sig("restaurant", "Austin", "vegan tacos downtown")
	b := sig("fitness", "Austin", "yoga tacos early")
	assert.InDelta(t, w.Score(&a, &b), w.Score(&b, &a), 0.0001)
}

func TestClusterGreedy(t *testing.T) {
	c := New(NewWeighted())

	signals := []model.ScoredSignal{
		sig("restaurant", "Austin", "no vegan food"),
		sig("restaurant", "Austin", "no vegan options"),
		sig("fitness", "Portland", "gym is packed"),
		sig("restaurant", "Austin", "vegan food missing"),
	}

	clusters := c.Cluster(signals)
	require.Len(t, clusters, 2)

	assert.Equal(t, 3, clusters[0].Size())
	assert.Equal(t, "restaurant", clusters[0].Category())
	assert.Equal(t, 1, clusters[1].Size())
	assert.Equal(t, "fitness", clusters[1].Category())
}

func TestClusterSingletons(t *testing.T) {
	c := New(NewWeighted())

	signals := []model.ScoredSignal{
		sig("restaurant", "Austin", "alpha"),
		sig("fitness", "Portland", "beta"),
		sig("childcare", "Denver", "gamma"),
	}

	clusters := c.Cluster(signals)
	assert.Len(t, clusters, 3)
	for _, cl := range clusters {
		assert.Equal(t, 1, cl.Size())
	}
}

func TestClusterDeterministic(t *testing.T) {
	c := New(NewWeighted())

	signals := []model.ScoredSignal{
		sig("restaurant", "Austin", "no vegan food"),
		sig("restaurant", "Austin", "no vegan options"),
		sig("restaurant", "Dallas", "vegan brunch gone"),
		sig("fitness", "Austin", "gym crowded"),
	}

	first := c.Cluster(signals)
	for i := 0; i < 5; i++ {
		again := c.Cluster(signals)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Signals, again[j].Signals)
		}
	}
}

func TestClusterEmptyInput(t *testing.T) {
	c := New(NewWeighted())
	assert.Empty(t, c.Cluster(nil))
}

func TestClusterThreshold(t *testing.T) {
	// With threshold 0 everything joins the first cluster.
	c := NewWithThreshold(NewWeighted(), 0)
	signals := []model.ScoredSignal{
		sig("a", "", "x"),
		sig("b", "", "y"),
		sig("c", "", "z"),
	}
	clusters := c.Cluster(signals)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Size())
}

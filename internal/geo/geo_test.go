package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

func ptrFloat(v float64) *float64 { return &v }

func signalAt(city string, lat, lng float64) model.ScoredSignal {
	return model.ScoredSignal{
		Signal: model.RawSignal{
			City:      city,
			Latitude:  ptrFloat(lat),
			Longitude: ptrFloat(lng),
		},
	}
}

func signalIn(city string) model.ScoredSignal {
	return model.ScoredSignal{Signal: model.RawSignal{City: city}}
}

func TestHaversineKM(t *testing.T) {
	// Austin (30.2672, -97.7431) to Dallas (32.7767, -96.7970) ≈ 290km.
	d := HaversineKM(30.2672, -97.7431, 32.7767, -96.7970)
	assert.InDelta(t, 290, d, 10, "Austin-Dallas should be ~290km")

	// Same point should be 0.
	assert.InDelta(t, 0, HaversineKM(30.0, -97.0, 30.0, -97.0), 0.001)
}

func TestResolveLocationMajorityCity(t *testing.T) {
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		signalIn("Austin"),
		signalIn("Austin"),
		signalIn("Dallas"),
	}}

	loc := ResolveLocation(cluster)
	assert.Equal(t, "Austin", loc.City)
	assert.Equal(t, 2, loc.SignalCount)
	// City-only signals carry 0.7 confidence each.
	assert.InDelta(t, 0.7, loc.Confidence, 0.001)
	assert.Nil(t, loc.Centroid)
}

func TestResolveLocationCaseInsensitive(t *testing.T) {
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		signalIn("austin"),
		signalIn("Austin"),
		signalIn("AUSTIN"),
	}}

	loc := ResolveLocation(cluster)
	assert.Equal(t, "austin", loc.City) // first-seen spelling wins
	assert.Equal(t, 3, loc.SignalCount)
}

func TestResolveLocationConfidenceMix(t *testing.T) {
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		signalAt("Austin", 30.2672, -97.7431),
		signalIn("Austin"),
	}}

	loc := ResolveLocation(cluster)
	// (0.9 + 0.7) / 2
	assert.InDelta(t, 0.8, loc.Confidence, 0.001)
	require.NotNil(t, loc.Centroid)
	assert.InDelta(t, 30.2672, loc.Centroid.Y(), 0.0001)
	assert.InDelta(t, -97.7431, loc.Centroid.X(), 0.0001)
	assert.Equal(t, 4326, loc.Centroid.SRID())
}

func TestResolveLocationCentroidIsMean(t *testing.T) {
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		signalAt("Austin", 30.0, -97.0),
		signalAt("Austin", 31.0, -98.0),
	}}

	loc := ResolveLocation(cluster)
	require.NotNil(t, loc.Centroid)
	assert.InDelta(t, 30.5, loc.Centroid.Y(), 0.0001)
	assert.InDelta(t, -97.5, loc.Centroid.X(), 0.0001)
}

func TestResolveLocationNoData(t *testing.T) {
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		{Signal: model.RawSignal{Content: "no location at all"}},
	}}

	loc := ResolveLocation(cluster)
	assert.Equal(t, UnknownCity, loc.City)
	assert.Zero(t, loc.Confidence)
	assert.Nil(t, loc.Centroid)
}

func TestResolveLocationStateFromMajority(t *testing.T) {
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		{Signal: model.RawSignal{City: "Austin", State: "TX"}},
		{Signal: model.RawSignal{City: "Portland", State: "OR"}},
		{Signal: model.RawSignal{City: "Austin"}},
	}}

	loc := ResolveLocation(cluster)
	assert.Equal(t, "Austin", loc.City)
	assert.Equal(t, "TX", loc.State)
}

func TestComputeCoverageDefault(t *testing.T) {
	t.Run("too few coordinates", func(t *testing.T) {
		cluster := &model.Cluster{Signals: []model.ScoredSignal{
			signalAt("Austin", 30.0, -97.0),
			signalIn("Austin"),
		}}
		loc := ResolveLocation(cluster)

		cov := ComputeCoverage(cluster, loc)
		assert.Equal(t, model.CoverageDefault, cov.Type)
		assert.InDelta(t, DefaultRadiusKM, cov.RadiusKM, 0.001)
	})

	t.Run("no centroid", func(t *testing.T) {
		cluster := &model.Cluster{Signals: []model.ScoredSignal{
			signalIn("Austin"),
			signalIn("Austin"),
		}}
		cov := ComputeCoverage(cluster, model.LocationResolution{City: "Austin"})
		assert.Equal(t, model.CoverageDefault, cov.Type)
		assert.InDelta(t, float64(cluster.Size())/(DefaultRadiusKM*DefaultRadiusKM), cov.Density, 0.0001)
	})
}

func TestComputeCoverageCalculated(t *testing.T) {
	// Two points ~22km apart; centroid sits midway so max distance ≈ 11km.
	cluster := &model.Cluster{Signals: []model.ScoredSignal{
		signalAt("Austin", 30.2672, -97.7431),
		signalAt("Austin", 30.4672, -97.7431),
	}}
	loc := ResolveLocation(cluster)
	require.NotNil(t, loc.Centroid)

	cov := ComputeCoverage(cluster, loc)
	assert.Equal(t, model.CoverageCalculated, cov.Type)
	// max distance ~11.1km scaled by 1.2 ≈ 13.3km, under the small-cluster cap.
	assert.InDelta(t, 13.3, cov.RadiusKM, 0.5)
	assert.InDelta(t, 2.0/(cov.RadiusKM*cov.RadiusKM), cov.Density, 0.0001)
}

func TestComputeCoverageCaps(t *testing.T) {
	spread := func(n int) *model.Cluster {
		c := &model.Cluster{}
		for i := 0; i < n; i++ {
			// Alternate two points ~66km apart to force a large raw radius.
			if i%2 == 0 {
				c.Signals = append(c.Signals, signalAt("Austin", 30.0, -97.0))
			} else {
				c.Signals = append(c.Signals, signalAt("Austin", 30.6, -97.0))
			}
		}
		return c
	}

	cases := []struct {
		name    string
		signals int
		wantCap float64
	}{
		{"large cluster tight cap", 10, 10.0},
		{"medium cluster", 5, 15.0},
		{"small cluster loose cap", 3, 25.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cluster := spread(tc.signals)
			loc := ResolveLocation(cluster)
			require.NotNil(t, loc.Centroid)

			cov := ComputeCoverage(cluster, loc)
			assert.Equal(t, model.CoverageCalculated, cov.Type)
			assert.InDelta(t, tc.wantCap, cov.RadiusKM, 0.001)
		})
	}
}

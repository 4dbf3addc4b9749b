package geo

import (
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

// UnknownCity is the sentinel city for clusters with no location data at all.
const UnknownCity = "Unknown"

// Per-signal location confidence: coordinates beat a bare city string.
const (
	confidenceWithCoords = 0.9
	confidenceCityOnly   = 0.7
)

// ResolveLocation aggregates per-signal location data into one primary
// city/state with a confidence value and a centroid. A cluster with no
// location data anywhere resolves to UnknownCity at zero confidence rather
// than failing.
func ResolveLocation(cluster *model.Cluster) model.LocationResolution {
	counts := make(map[string]int)
	canonical := make(map[string]string) // normalized -> first-seen spelling
	for _, s := range cluster.Signals {
		city := strings.TrimSpace(s.Signal.City)
		if city == "" {
			continue
		}
		key := strings.ToLower(city)
		if _, ok := canonical[key]; !ok {
			canonical[key] = city
		}
		counts[key]++
	}

	if len(counts) == 0 {
		zap.L().Debug("geo: cluster has no declared cities", zap.Int("signals", cluster.Size()))
		return model.LocationResolution{City: UnknownCity, Confidence: 0}
	}

	// Majority city, ties broken by normalized name for determinism.
	var majority string
	for key, n := range counts {
		if majority == "" || n > counts[majority] || (n == counts[majority] && key < majority) {
			majority = key
		}
	}

	var (
		confSum      float64
		state        string
		lats, lngs   []float64
		majoritySize int
	)
	for _, s := range cluster.Signals {
		if strings.ToLower(strings.TrimSpace(s.Signal.City)) != majority {
			continue
		}
		majoritySize++
		if s.Signal.HasCoordinates() {
			confSum += confidenceWithCoords
			lats = append(lats, *s.Signal.Latitude)
			lngs = append(lngs, *s.Signal.Longitude)
		} else {
			confSum += confidenceCityOnly
		}
		if state == "" && s.Signal.State != "" {
			state = s.Signal.State
		}
	}

	res := model.LocationResolution{
		City:        canonical[majority],
		State:       state,
		Confidence:  confSum / float64(majoritySize),
		SignalCount: majoritySize,
	}

	if len(lats) > 0 {
		res.Centroid = geom.NewPointFlat(geom.XY, []float64{mean(lngs), mean(lats)}).SetSRID(4326)
	}

	return res
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

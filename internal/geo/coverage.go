package geo

import "github.com/Nardo758/Project-Spark-sub000/internal/model"

// DefaultRadiusKM is the coverage radius used when the cluster has too
// little coordinate evidence to calculate one.
const DefaultRadiusKM = 10.0

// radiusScale pads the furthest observed signal so coverage is not cut off
// exactly at the last data point.
const radiusScale = 1.2

// Radius caps by cluster size: denser evidence earns a tighter, more
// trustworthy radius.
const (
	capLargeClusterKM  = 10.0 // >= 10 signals
	capMediumClusterKM = 15.0 // >= 5 signals
	capSmallClusterKM  = 25.0
)

// ComputeCoverage derives a service radius and signal density for a cluster
// around its resolved centroid.
func ComputeCoverage(cluster *model.Cluster, loc model.LocationResolution) model.CoverageArea {
	coordCount := 0
	for _, s := range cluster.Signals {
		if s.Signal.HasCoordinates() {
			coordCount++
		}
	}

	if coordCount < 2 || loc.Centroid == nil {
		return model.CoverageArea{
			RadiusKM: DefaultRadiusKM,
			Type:     model.CoverageDefault,
			Density:  density(cluster.Size(), DefaultRadiusKM),
		}
	}

	centroidLng := loc.Centroid.X()
	centroidLat := loc.Centroid.Y()

	maxKM := 0.0
	for _, s := range cluster.Signals {
		if !s.Signal.HasCoordinates() {
			continue
		}
		d := HaversineKM(centroidLat, centroidLng, *s.Signal.Latitude, *s.Signal.Longitude)
		if d > maxKM {
			maxKM = d
		}
	}

	radius := maxKM * radiusScale
	limit := capSmallClusterKM
	switch {
	case cluster.Size() >= 10:
		limit = capLargeClusterKM
	case cluster.Size() >= 5:
		limit = capMediumClusterKM
	}
	if radius > limit {
		radius = limit
	}

	return model.CoverageArea{
		RadiusKM: radius,
		Type:     model.CoverageCalculated,
		Density:  density(cluster.Size(), radius),
	}
}

func density(signals int, radiusKM float64) float64 {
	if radiusKM == 0 {
		return 0
	}
	return float64(signals) / (radiusKM * radiusKM)
}

package cluster

import (
	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

// DefaultThreshold is the minimum seed similarity for joining a cluster.
const DefaultThreshold = 0.55

// Clusterer partitions signals with a greedy single pass: each unassigned
// signal seeds a cluster and absorbs every remaining unassigned signal
// similar enough to the seed. Output is deterministic for a fixed input
// order; order-independent clustering is a non-goal.
type Clusterer struct {
	sim       Similarity
	threshold float64
}

// New creates a Clusterer with the given similarity function and the
// default join threshold.
func New(sim Similarity) *Clusterer {
	return &Clusterer{sim: sim, threshold: DefaultThreshold}
}

// NewWithThreshold creates a Clusterer with a custom join threshold.
func NewWithThreshold(sim Similarity, threshold float64) *Clusterer {
	return &Clusterer{sim: sim, threshold: threshold}
}

// Cluster partitions the signals into non-overlapping, possibly singleton
// clusters.
func (c *Clusterer) Cluster(signals []model.ScoredSignal) []*model.Cluster {
	assigned := make([]bool, len(signals))
	var clusters []*model.Cluster

	for i := range signals {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cl := &model.Cluster{Signals: []model.ScoredSignal{signals[i]}}
		seed := &signals[i]

		for j := i + 1; j < len(signals); j++ {
			if assigned[j] {
				continue
			}
			if c.sim.Score(seed, &signals[j]) >= c.threshold {
				assigned[j] = true
				cl.Signals = append(cl.Signals, signals[j])
			}
		}

		clusters = append(clusters, cl)
	}

	zap.L().Debug("cluster: partition complete",
		zap.Int("signals", len(signals)),
		zap.Int("clusters", len(clusters)),
	)

	return clusters
}

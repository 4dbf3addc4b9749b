// Package dedup merges freshly validated clusters into existing
// opportunities so repeated demand strengthens one record instead of
// creating near-duplicates.
package dedup

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/geo"
	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/store"
)

// candidateLimit caps how many active opportunities are considered per
// cluster.
const candidateLimit = 5

// Deduper finds and merges into existing opportunities.
type Deduper struct {
	store store.Store
}

// New creates a Deduper over the given store.
func New(s store.Store) *Deduper {
	return &Deduper{store: s}
}

// Merge looks for an existing active opportunity matching the cluster's
// category and resolved city. If one exists, the cluster is folded into it:
// the validation count grows by the cluster size and every cluster signal is
// linked. Returns the merged opportunity id, or "" when no candidate matched
// and the caller should create a new opportunity.
func (d *Deduper) Merge(ctx context.Context, cluster *model.Cluster, loc model.LocationResolution) (string, error) {
	city := loc.City
	if city == geo.UnknownCity {
		city = ""
	}

	candidates, err := d.store.FindCandidates(ctx, cluster.Category(), city, candidateLimit)
	if err != nil {
		return "", eris.Wrap(err, "dedup: find candidates")
	}
	if len(candidates) == 0 {
		return "", nil
	}

	// Candidates come back newest first; the first match wins.
	target := candidates[0]

	if err := d.store.IncrementValidationCount(ctx, target.ID, cluster.Size()); err != nil {
		return "", eris.Wrapf(err, "dedup: merge into %s", target.ID)
	}

	for _, s := range cluster.Signals {
		link := model.SignalLink{
			OpportunityID:     target.ID,
			SignalID:          s.Signal.ID,
			ContributionScore: s.QualityScore,
			MatchedPattern:    firstPattern(s),
		}
		if err := d.store.LinkSignal(ctx, link); err != nil {
			// A failed link must not abort the merge.
			zap.L().Warn("dedup: link signal failed",
				zap.String("opportunity_id", target.ID),
				zap.Int64("signal_id", s.Signal.ID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("dedup: merged cluster into existing opportunity",
		zap.String("opportunity_id", target.ID),
		zap.String("category", cluster.Category()),
		zap.String("city", loc.City),
		zap.Int("cluster_size", cluster.Size()),
	)
	return target.ID, nil
}

func firstPattern(s model.ScoredSignal) string {
	if len(s.Matches) == 0 {
		return ""
	}
	return s.Matches[0].Pattern
}

// Package pipeline orchestrates one signal-to-opportunity conversion batch:
// load, score, cluster, validate, and persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Nardo758/Project-Spark-sub000/internal/cluster"
	"github.com/Nardo758/Project-Spark-sub000/internal/config"
	"github.com/Nardo758/Project-Spark-sub000/internal/dedup"
	"github.com/Nardo758/Project-Spark-sub000/internal/extract"
	"github.com/Nardo758/Project-Spark-sub000/internal/geo"
	"github.com/Nardo758/Project-Spark-sub000/internal/market"
	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/patterns"
	"github.com/Nardo758/Project-Spark-sub000/internal/scorer"
	"github.com/Nardo758/Project-Spark-sub000/internal/store"
	"github.com/Nardo758/Project-Spark-sub000/internal/validate"
	"github.com/Nardo758/Project-Spark-sub000/pkg/anthropic"
)

// Polisher rewrites generated opportunity copy. Nil disables polishing.
type Polisher interface {
	Polish(ctx context.Context, req anthropic.PolishRequest) (*anthropic.PolishResult, error)
}

// Sanity bounds on polished copy. Out-of-bounds results fall back to the
// generated draft.
const (
	minTitleLen       = 10
	maxTitleLen       = 200
	minDescriptionLen = 50
	maxDescriptionLen = 3000
)

// Pipeline converts unprocessed signals into opportunities.
type Pipeline struct {
	cfg       config.PipelineConfig
	store     store.Store
	scorer    *scorer.Scorer
	clusterer *cluster.Clusterer
	extractor *extract.Extractor
	validator *validate.Validator
	estimator *market.Estimator
	deduper   *dedup.Deduper
	polisher  Polisher
}

// New creates a Pipeline over the given store. The polisher may be nil.
func New(cfg config.PipelineConfig, st store.Store, polisher Polisher) *Pipeline {
	lib := patterns.Default()
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		scorer:    scorer.New(lib),
		clusterer: cluster.NewWithThreshold(cluster.NewWeighted(), cfg.SimilarityThreshold),
		extractor: extract.New(lib),
		validator: validate.New(lib),
		estimator: market.New(nil, lib),
		deduper:   dedup.New(st),
		polisher:  polisher,
	}
}

// Run executes one conversion batch. Every loaded signal is marked processed
// at the end, whether or not it produced an opportunity, so a signal is
// consumed exactly once.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	start := time.Now()
	batchID := newBatchID(start)
	log := zap.L().With(zap.String("batch_id", batchID))

	result := &model.RunResult{
		BatchID:   batchID,
		StartedAt: start,
	}

	signals, err := p.store.LoadUnprocessed(ctx, p.cfg.BatchSize)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load signals")
	}
	result.SignalsLoaded = len(signals)
	if len(signals) == 0 {
		log.Info("pipeline: no unprocessed signals")
		result.Duration = time.Since(start)
		return result, nil
	}
	log.Info("pipeline: batch loaded", zap.Int("signals", len(signals)))

	scored, err := p.scoreAll(ctx, signals)
	if err != nil {
		return nil, err
	}

	kept := make([]model.ScoredSignal, 0, len(scored))
	for _, s := range scored {
		if s.QualityScore >= p.cfg.QualityThreshold {
			kept = append(kept, s)
		}
	}
	result.SignalsDropped = len(scored) - len(kept)

	clusters := p.clusterer.Cluster(kept)
	result.ClustersFormed = len(clusters)
	log.Info("pipeline: clustering done",
		zap.Int("kept_signals", len(kept)),
		zap.Int("dropped_signals", result.SignalsDropped),
		zap.Int("clusters", len(clusters)),
	)

	for _, c := range clusters {
		outcome, oppID, err := p.convert(ctx, c)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case model.OutcomeDropped:
			result.ClustersDropped++
		case model.OutcomeMerged:
			result.ClustersMerged++
			result.OpportunityIDs = append(result.OpportunityIDs, oppID)
		case model.OutcomeCreated:
			result.ClustersCreated++
			result.OpportunityIDs = append(result.OpportunityIDs, oppID)
		}
	}

	// Marking processed is the batch's commit point. Failing here means the
	// same signals would be consumed again next run, so it is fatal.
	ids := make([]int64, len(signals))
	for i, s := range signals {
		ids[i] = s.ID
	}
	if err := p.store.MarkProcessed(ctx, ids, batchID, time.Now().UTC()); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark processed")
	}
	result.SignalsProcessed = len(ids)
	result.Duration = time.Since(start)

	log.Info("pipeline: batch complete",
		zap.Int("signals_processed", result.SignalsProcessed),
		zap.Int("clusters_created", result.ClustersCreated),
		zap.Int("clusters_merged", result.ClustersMerged),
		zap.Int("clusters_dropped", result.ClustersDropped),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// scoreAll scores signals concurrently, preserving input order.
func (p *Pipeline) scoreAll(ctx context.Context, signals []model.RawSignal) ([]model.ScoredSignal, error) {
	workers := p.cfg.ScoreWorkers
	if workers < 1 {
		workers = 1
	}

	scored := make([]model.ScoredSignal, len(signals))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range signals {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			scored[i] = p.scorer.Score(signals[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: score signals")
	}
	return scored, nil
}

// convert takes one cluster through validation and persistence.
func (p *Pipeline) convert(ctx context.Context, c *model.Cluster) (model.ClusterOutcome, string, error) {
	loc := geo.ResolveLocation(c)
	idea := p.extractor.Extract(c, loc)
	coverage := geo.ComputeCoverage(c, loc)
	validation := p.validator.Validate(idea, c, loc)

	log := zap.L().With(
		zap.String("category", idea.Category),
		zap.String("city", loc.City),
		zap.Int("cluster_size", c.Size()),
	)

	if !validation.Passed {
		log.Debug("pipeline: cluster dropped",
			zap.Float64("validation_score", validation.Score),
			zap.String("tier", string(validation.Tier)),
		)
		return model.OutcomeDropped, "", nil
	}

	mergedID, err := p.deduper.Merge(ctx, c, loc)
	if err != nil {
		return "", "", err
	}
	if mergedID != "" {
		return model.OutcomeMerged, mergedID, nil
	}

	estimate := p.estimator.Estimate(idea, loc, c)
	opp := p.buildOpportunity(ctx, c, loc, idea, validation, estimate)

	id, err := p.store.CreateOpportunity(ctx, opp)
	if err != nil {
		return "", "", eris.Wrap(err, "pipeline: create opportunity")
	}

	for _, s := range c.Signals {
		link := model.SignalLink{
			OpportunityID:     id,
			SignalID:          s.Signal.ID,
			ContributionScore: s.QualityScore,
		}
		if len(s.Matches) > 0 {
			link.MatchedPattern = s.Matches[0].Pattern
		}
		if err := p.store.LinkSignal(ctx, link); err != nil {
			log.Warn("pipeline: link signal failed",
				zap.Int64("signal_id", s.Signal.ID),
				zap.Error(err),
			)
		}
	}

	log.Info("pipeline: opportunity created",
		zap.String("opportunity_id", id),
		zap.String("tier", string(validation.Tier)),
		zap.String("market_size", string(estimate.SizeClass)),
		zap.Float64("coverage_radius_km", coverage.RadiusKM),
		zap.String("coverage_type", string(coverage.Type)),
	)
	return model.OutcomeCreated, id, nil
}

func (p *Pipeline) buildOpportunity(
	ctx context.Context,
	c *model.Cluster,
	loc model.LocationResolution,
	idea model.BusinessIdea,
	validation model.ValidationResult,
	estimate model.MarketEstimate,
) *model.Opportunity {
	title, description := p.polishCopy(ctx, idea, loc)

	opp := &model.Opportunity{
		Title:           title,
		Description:     description,
		Category:        idea.Category,
		Subcategory:     idea.ThemeKeyword,
		SeverityScore:   validation.Score,
		MarketSize:      estimate.SizeClass,
		Country:         "US",
		Region:          loc.State,
		ValidationCount: c.Size(),
		ValidationScore: int(validation.Score*100 + 0.5),
		Status:          model.OpportunityStatusActive,
	}
	if loc.City != geo.UnknownCity {
		opp.City = loc.City
	}
	if loc.Centroid != nil {
		lat, lng := loc.Centroid.Y(), loc.Centroid.X()
		opp.Latitude = &lat
		opp.Longitude = &lng
	}
	for _, s := range c.Signals {
		opp.SourceIDs = append(opp.SourceIDs, s.Signal.Source+":"+s.Signal.SourceID)
	}
	return opp
}

// polishCopy runs the draft copy through the polisher. Any failure or
// implausible output falls back to the draft; a polish problem must never
// lose an opportunity.
func (p *Pipeline) polishCopy(ctx context.Context, idea model.BusinessIdea, loc model.LocationResolution) (string, string) {
	draftTitle := idea.SolutionStatement
	draftDescription := idea.ProblemStatement

	if p.polisher == nil {
		return draftTitle, draftDescription
	}

	city := loc.City
	if city == geo.UnknownCity {
		city = ""
	}
	result, err := p.polisher.Polish(ctx, anthropic.PolishRequest{
		DraftTitle:       draftTitle,
		DraftDescription: draftDescription,
		Category:         idea.Category,
		City:             city,
		SampleTitles:     idea.SampleTitles,
		Keywords:         idea.TopKeywords,
	})
	if err != nil {
		zap.L().Warn("pipeline: polish failed, keeping draft copy", zap.Error(err))
		return draftTitle, draftDescription
	}

	title, description := result.Title, result.Description
	if len(title) < minTitleLen || len(title) > maxTitleLen {
		title = draftTitle
	}
	if len(description) < minDescriptionLen || len(description) > maxDescriptionLen {
		description = draftDescription
	}
	return title, description
}

// newBatchID builds a sortable batch identifier: a UTC timestamp plus a short
// random suffix.
func newBatchID(t time.Time) string {
	return fmt.Sprintf("%s-%s", t.UTC().Format("20060102-150405"), uuid.New().String()[:8])
}

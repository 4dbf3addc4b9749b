package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "spark.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func ptr[T any](v T) *T { return &v }

func makeSignal(sourceID string, capturedAt time.Time) *model.RawSignal {
	return &model.RawSignal{
		Source:     "reddit",
		SourceID:   sourceID,
		Title:      "No late night food",
		Content:    "Nothing is open after 10pm around here.",
		City:       "Austin",
		State:      "TX",
		Latitude:   ptr(30.2672),
		Longitude:  ptr(-97.7431),
		Rating:     ptr(2.0),
		Metadata:   map[string]any{"category": "restaurant"},
		CapturedAt: &capturedAt,
	}
}

func TestInsertAndLoadUnprocessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	older := now.Add(-time.Hour)

	sigA := makeSignal("a", older)
	sigB := makeSignal("b", now)
	require.NoError(t, s.InsertSignal(ctx, sigA))
	require.NoError(t, s.InsertSignal(ctx, sigB))
	assert.Positive(t, sigA.ID)
	assert.Positive(t, sigB.ID)

	got, err := s.LoadUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Most recently captured first.
	assert.Equal(t, "b", got[0].SourceID)
	assert.Equal(t, "a", got[1].SourceID)

	first := got[0]
	assert.Equal(t, "reddit", first.Source)
	assert.Equal(t, "Austin", first.City)
	assert.Equal(t, "TX", first.State)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 30.2672, *first.Latitude, 0.0001)
	require.NotNil(t, first.Rating)
	assert.InDelta(t, 2.0, *first.Rating, 0.001)
	assert.Equal(t, "restaurant", first.CategoryHint())
	require.NotNil(t, first.CapturedAt)
	assert.False(t, first.Processed)
}

func TestInsertSignalDuplicateIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.InsertSignal(ctx, makeSignal("dup", now)))
	require.NoError(t, s.InsertSignal(ctx, makeSignal("dup", now)))

	stats, err := s.SignalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestLoadUnprocessedRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.InsertSignal(ctx, makeSignal(id, now)))
	}

	got, err := s.LoadUnprocessed(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMarkProcessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	sigA := makeSignal("a", now)
	sigB := makeSignal("b", now)
	require.NoError(t, s.InsertSignal(ctx, sigA))
	require.NoError(t, s.InsertSignal(ctx, sigB))

	require.NoError(t, s.MarkProcessed(ctx, []int64{sigA.ID}, "batch-1", now))

	got, err := s.LoadUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].SourceID)

	stats, err := s.SignalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Unprocessed)
}

func TestMarkProcessedEmptyIDs(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.MarkProcessed(context.Background(), nil, "batch-1", time.Now()))
}

func TestCreateAndListOpportunities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	opp := &model.Opportunity{
		Title:           "Late-night delivery service in Austin",
		Description:     "People in Austin repeatedly report unmet demand around late-night food.",
		Category:        "restaurant",
		Subcategory:     "latenight",
		SeverityScore:   0.82,
		MarketSize:      model.MarketLarge,
		Country:         "US",
		Region:          "TX",
		City:            "Austin",
		Latitude:        ptr(30.2672),
		Longitude:       ptr(-97.7431),
		SourceIDs:       []string{"reddit:a", "reddit:b"},
		ValidationCount: 1,
		ValidationScore: 82,
	}

	id, err := s.CreateOpportunity(ctx, opp)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.ListOpportunities(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.Equal(t, id, o.ID)
	assert.Equal(t, "Late-night delivery service in Austin", o.Title)
	assert.Equal(t, "restaurant", o.Category)
	assert.Equal(t, "latenight", o.Subcategory)
	assert.InDelta(t, 0.82, o.SeverityScore, 0.001)
	assert.Equal(t, model.MarketLarge, o.MarketSize)
	assert.Equal(t, "Austin", o.City)
	require.NotNil(t, o.Latitude)
	assert.InDelta(t, 30.2672, *o.Latitude, 0.0001)
	assert.Equal(t, []string{"reddit:a", "reddit:b"}, o.SourceIDs)
	assert.Equal(t, 82, o.ValidationScore)
	assert.Equal(t, model.OpportunityStatusActive, o.Status)
	assert.False(t, o.CreatedAt.IsZero())
}

func TestFindCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(title, category, city string) {
		_, err := s.CreateOpportunity(ctx, &model.Opportunity{
			Title:       title,
			Description: "d",
			Category:    category,
			City:        city,
		})
		require.NoError(t, err)
	}
	mk("Austin restaurant gap", "restaurant", "Austin")
	mk("Dallas restaurant gap", "restaurant", "Dallas")
	mk("Austin fitness gap", "fitness", "Austin")

	got, err := s.FindCandidates(ctx, "restaurant", "Austin", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Austin restaurant gap", got[0].Title)

	// Empty city matches any city.
	got, err = s.FindCandidates(ctx, "restaurant", "", 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestIncrementValidationCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateOpportunity(ctx, &model.Opportunity{
		Title:           "t",
		Description:     "d",
		Category:        "restaurant",
		ValidationCount: 1,
	})
	require.NoError(t, err)

	require.NoError(t, s.IncrementValidationCount(ctx, id, 3))

	got, err := s.ListOpportunities(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].ValidationCount)

	err = s.IncrementValidationCount(ctx, "missing-id", 1)
	assert.Error(t, err)
}

func TestLinkSignalIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sig := makeSignal("a", time.Now().UTC())
	require.NoError(t, s.InsertSignal(ctx, sig))

	id, err := s.CreateOpportunity(ctx, &model.Opportunity{
		Title: "t", Description: "d", Category: "restaurant",
	})
	require.NoError(t, err)

	link := model.SignalLink{
		OpportunityID:     id,
		SignalID:          sig.ID,
		ContributionScore: 0.8,
		MatchedPattern:    "nothing.*open",
	}
	require.NoError(t, s.LinkSignal(ctx, link))
	require.NoError(t, s.LinkSignal(ctx, link))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM signal_links`).Scan(&n))
	assert.Equal(t, 1, n)
}

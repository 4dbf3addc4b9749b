// Package store persists raw signals, opportunities, and signal links
// behind a narrow interface with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

// SignalStats summarizes the signal backlog.
type SignalStats struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Unprocessed int `json:"unprocessed"`
}

// Store is the persistence interface for the conversion pipeline. The
// pipeline is the sole writer of the processed flag and batch id on
// signals.
type Store interface {
	// Signals
	InsertSignal(ctx context.Context, sig *model.RawSignal) error
	LoadUnprocessed(ctx context.Context, limit int) ([]model.RawSignal, error)
	MarkProcessed(ctx context.Context, ids []int64, batchID string, ts time.Time) error
	SignalStats(ctx context.Context) (*SignalStats, error)

	// Opportunities
	FindCandidates(ctx context.Context, category, city string, limit int) ([]model.Opportunity, error)
	CreateOpportunity(ctx context.Context, opp *model.Opportunity) (string, error)
	IncrementValidationCount(ctx context.Context, id string, delta int) error
	ListOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error)

	// Links. Inserting an existing (opportunity, signal) pair is a no-op.
	LinkSignal(ctx context.Context, link model.SignalLink) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

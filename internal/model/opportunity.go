package model

import "time"

// ConfidenceTier classifies a validated cluster by its validation score.
type ConfidenceTier string

const (
	TierGoldmine   ConfidenceTier = "GOLDMINE"
	TierValidated  ConfidenceTier = "VALIDATED"
	TierWeakSignal ConfidenceTier = "WEAK_SIGNAL"
	TierNoise      ConfidenceTier = "NOISE"
)

// MarketSizeClass buckets an estimated market by potential customer count.
type MarketSizeClass string

const (
	MarketLarge  MarketSizeClass = "LARGE"
	MarketMedium MarketSizeClass = "MEDIUM"
	MarketSmall  MarketSizeClass = "SMALL"
	MarketNiche  MarketSizeClass = "NICHE"
)

// CompetitionLevel tags how contested a market looks from the cluster text.
type CompetitionLevel string

const (
	CompetitionHigh   CompetitionLevel = "HIGH"
	CompetitionMedium CompetitionLevel = "MEDIUM"
	CompetitionLow    CompetitionLevel = "LOW"
)

// OpportunityStatus represents the lifecycle state of a persisted opportunity.
type OpportunityStatus string

const (
	OpportunityStatusActive   OpportunityStatus = "active"
	OpportunityStatusArchived OpportunityStatus = "archived"
)

// Opportunity is the persisted output of the pipeline: one validated,
// geographically scoped business opportunity. The pipeline creates and merges
// opportunities but never deletes them.
type Opportunity struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	Subcategory     string            `json:"subcategory,omitempty"`
	SeverityScore   float64           `json:"severity_score"`
	MarketSize      MarketSizeClass   `json:"market_size"`
	Country         string            `json:"country,omitempty"`
	Region          string            `json:"region,omitempty"`
	City            string            `json:"city,omitempty"`
	Latitude        *float64          `json:"latitude,omitempty"`
	Longitude       *float64          `json:"longitude,omitempty"`
	SourceIDs       []string          `json:"source_ids,omitempty"`
	ValidationCount int               `json:"validation_count"`
	ValidationScore int               `json:"validation_score"` // 0-100
	Status          OpportunityStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// SignalLink joins a raw signal to the opportunity it contributed to.
// Inserting the same (opportunity, signal) pair twice is a no-op.
type SignalLink struct {
	OpportunityID     string  `json:"opportunity_id"`
	SignalID          int64   `json:"signal_id"`
	ContributionScore float64 `json:"contribution_score"`
	MatchedPattern    string  `json:"matched_pattern,omitempty"`
}

package model

import "github.com/twpayne/go-geom"

// BusinessIdea is the distilled description of what a cluster is about.
// Derived per cluster; transient.
type BusinessIdea struct {
	Category          string   `json:"category"`
	Subcategory       string   `json:"subcategory,omitempty"`
	ThemeKeyword      string   `json:"theme_keyword"`
	TopKeywords       []string `json:"top_keywords,omitempty"`
	LocationLabel     string   `json:"location_label"`
	ProblemStatement  string   `json:"problem_statement"`
	SolutionStatement string   `json:"solution_statement"`
	SampleTitles      []string `json:"sample_titles,omitempty"`
	SignalCount       int      `json:"signal_count"`
}

// LocationResolution aggregates per-signal location data into one primary
// city/state with a confidence value and an optional centroid. Transient.
type LocationResolution struct {
	City        string      `json:"city"`
	State       string      `json:"state,omitempty"`
	Confidence  float64     `json:"confidence"`
	SignalCount int         `json:"signal_count"`
	Centroid    *geom.Point `json:"-"`
}

// CoverageType tags how a coverage radius was derived.
type CoverageType string

const (
	CoverageDefault    CoverageType = "default"
	CoverageCalculated CoverageType = "calculated"
)

// CoverageArea is the service radius and signal density a cluster's evidence
// plausibly supports. Transient.
type CoverageArea struct {
	RadiusKM float64      `json:"radius_km"`
	Type     CoverageType `json:"type"`
	Density  float64      `json:"density"`
}

// ValidationResult holds the outcome of scoring a cluster against the
// validation rubric. Transient, but Score and Tier are copied onto the
// persisted opportunity.
type ValidationResult struct {
	Passed        bool               `json:"passed"`
	Score         float64            `json:"score"`
	Tier          ConfidenceTier     `json:"tier"`
	Breakdown     map[string]float64 `json:"breakdown"`
	PositiveFlags []string           `json:"positive_flags,omitempty"`
	NegativeFlags []string           `json:"negative_flags,omitempty"`
}

// RevenuePotential estimates first-year revenue for an opportunity.
type RevenuePotential struct {
	AnnualEstimate     float64 `json:"annual_estimate"`
	AvgCustomerValue   float64 `json:"avg_customer_value"`
	FirstYearCustomers int     `json:"first_year_customers"`
}

// MarketEstimate sizes the market behind a cluster. Transient.
type MarketEstimate struct {
	PotentialCustomers int              `json:"potential_customers"`
	SizeClass          MarketSizeClass  `json:"size_class"`
	Revenue            RevenuePotential `json:"revenue"`
	CompetitionLevel   CompetitionLevel `json:"competition_level"`
}

// Package model defines the domain types shared across the conversion pipeline.
package model

import "time"

// RawSignal is a single scraped text item: a review, forum post, or map
// listing excerpt. Created by the ingestion process; the pipeline only ever
// writes the Processed flag and BatchID.
type RawSignal struct {
	ID          int64          `json:"id"`
	Source      string         `json:"source"`
	SourceID    string         `json:"source_id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	City        string         `json:"city,omitempty"`
	State       string         `json:"state,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Rating      *float64       `json:"rating,omitempty"`
	ReviewCount *int           `json:"review_count,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CapturedAt  *time.Time     `json:"captured_at,omitempty"`
	Processed   bool           `json:"processed"`
	BatchID     string         `json:"batch_id,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (s *RawSignal) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Text returns the concatenated title and content used for pattern matching
// and keyword extraction.
func (s *RawSignal) Text() string {
	if s.Title == "" {
		return s.Content
	}
	return s.Title + " " + s.Content
}

// CategoryHint returns the category carried in the signal metadata, if any.
func (s *RawSignal) CategoryHint() string {
	if s.Metadata == nil {
		return ""
	}
	if c, ok := s.Metadata["category"].(string); ok {
		return c
	}
	return ""
}

// PatternMatch records a single pattern rule that matched a signal.
type PatternMatch struct {
	Category string  `json:"category"`
	Pattern  string  `json:"pattern"`
	Weight   float64 `json:"weight"`
}

// ScoredSignal is a RawSignal plus its computed quality score, detected
// category, and the pattern rules that matched. Computed fresh each run and
// never persisted on its own.
type ScoredSignal struct {
	Signal       RawSignal      `json:"signal"`
	QualityScore float64        `json:"quality_score"`
	Category     string         `json:"category"`
	Matches      []PatternMatch `json:"matches,omitempty"`
}

// Cluster is an ordered set of scored signals grouped by the clusterer for
// one run. Transient.
type Cluster struct {
	Signals []ScoredSignal `json:"signals"`
}

// Size returns the number of signals in the cluster.
func (c *Cluster) Size() int {
	return len(c.Signals)
}

// Category returns the detected category of the cluster seed (the first
// signal). The greedy clusterer only groups signals around a seed, so the
// seed's category stands for the whole cluster.
func (c *Cluster) Category() string {
	if len(c.Signals) == 0 {
		return ""
	}
	return c.Signals[0].Category
}

// SignalIDs returns the raw signal ids in cluster order.
func (c *Cluster) SignalIDs() []int64 {
	ids := make([]int64, len(c.Signals))
	for i, s := range c.Signals {
		ids[i] = s.Signal.ID
	}
	return ids
}

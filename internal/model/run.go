package model

import "time"

// ClusterOutcome is the terminal state of one cluster within a run.
type ClusterOutcome string

const (
	OutcomeDropped ClusterOutcome = "dropped"
	OutcomeMerged  ClusterOutcome = "merged"
	OutcomeCreated ClusterOutcome = "created"
)

// RunResult summarizes one pipeline batch.
type RunResult struct {
	BatchID          string        `json:"batch_id"`
	SignalsLoaded    int           `json:"signals_loaded"`
	SignalsDropped   int           `json:"signals_dropped"` // scored below the quality threshold
	ClustersFormed   int           `json:"clusters_formed"`
	ClustersDropped  int           `json:"clusters_dropped"` // failed validation
	ClustersMerged   int           `json:"clusters_merged"`
	ClustersCreated  int           `json:"clusters_created"`
	OpportunityIDs   []string      `json:"opportunity_ids,omitempty"`
	SignalsProcessed int           `json:"signals_processed"`
	Duration         time.Duration `json:"duration"`
	StartedAt        time.Time     `json:"started_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a mapping run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	// RunStatusPartial marks a cancelled or interrupted run whose
	// already-processed terms were still flushed.
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// MappingRun describes one classification pass over a batch of source terms
// against a fixed pair of terminology releases. Immutable after completion.
type MappingRun struct {
	ID            uuid.UUID   `json:"id"`
	SourceRelease string      `json:"source_release"`
	TargetRelease string      `json:"target_release"`
	Status        RunStatus   `json:"status"`
	Stats         RunStats    `json:"stats"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// RunStats aggregates per-run outcome counts for observability. The
// surrounding service decides how to expose them.
type RunStats struct {
	TermsProcessed int            `json:"terms_processed"`
	TierCounts     map[MappingTier]int `json:"tier_counts"`
	// AdapterFailures counts degraded adapter calls by source. A degraded
	// adapter never fails a term, it only lowers candidate coverage.
	AdapterFailures map[CandidateSource]int `json:"adapter_failures"`
	// AverageAggregate is the mean aggregate score across all records.
	AverageAggregate float64 `json:"average_aggregate"`
}

// NewRunStats returns zeroed stats with initialized maps.
func NewRunStats() RunStats {
	return RunStats{
		TierCounts:      make(map[MappingTier]int),
		AdapterFailures: make(map[CandidateSource]int),
	}
}

package models

import "time"

// ValidationFeedback is one reviewer judgement on a persisted mapping.
// Feedback rows are append-only and never mutated; the feedback service
// folds them into a running average that feeds the validation signal on
// subsequent runs.
type ValidationFeedback struct {
	ID           int64     `json:"id"`
	ReviewerID   string    `json:"reviewer_id"`
	SourceSystem string    `json:"source_system"`
	SourceCode   string    `json:"source_code"`
	TargetSystem string    `json:"target_system"`
	TargetCode   string    `json:"target_code"`
	// Score is the reviewer confidence in [0,1].
	Score     float64   `json:"score"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

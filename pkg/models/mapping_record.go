package models

import (
	"time"

	"github.com/google/uuid"
)

// MappingKey identifies the logical mapping a record belongs to. At most one
// active record exists per key; superseded records are kept for audit.
type MappingKey struct {
	SourceSystem  string `json:"source_system"`
	SourceCode    string `json:"source_code"`
	TargetSystem  string `json:"target_system"`
	SourceRelease string `json:"source_release"`
	TargetRelease string `json:"target_release"`
}

// MappingRecord is the persisted outcome of classifying one source term
// against one target terminology. TargetCode is empty for unmappable
// outcomes; the record is still written so every term has exactly one
// outcome per target family.
type MappingRecord struct {
	ID            int64           `json:"id"`
	RunID         uuid.UUID       `json:"run_id"`
	SourceSystem  string          `json:"source_system"`
	SourceCode    string          `json:"source_code"`
	SourceDisplay string          `json:"source_display"`
	TargetSystem  string          `json:"target_system"`
	TargetCode    string          `json:"target_code,omitempty"`
	TargetDisplay string          `json:"target_display,omitempty"`
	Tier          MappingTier     `json:"tier"`
	Equivalence   Equivalence     `json:"equivalence"`
	Signals       SignalBreakdown `json:"signals"`
	SourceRelease string          `json:"source_release"`
	TargetRelease string          `json:"target_release"`
	Active        bool            `json:"active"`
	ReviewerScore *float64        `json:"reviewer_score,omitempty"`
	ReviewerNotes string          `json:"reviewer_notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Key returns the supersede key for this record.
func (r *MappingRecord) Key() MappingKey {
	return MappingKey{
		SourceSystem:  r.SourceSystem,
		SourceCode:    r.SourceCode,
		TargetSystem:  r.TargetSystem,
		SourceRelease: r.SourceRelease,
		TargetRelease: r.TargetRelease,
	}
}

// TranslationGroup collects the records that share a (source system,
// target system) pair. This is the shape handed to downstream interchange
// formatters; the engine itself never serializes a wire protocol.
type TranslationGroup struct {
	SourceSystem string           `json:"source_system"`
	TargetSystem string           `json:"target_system"`
	Records      []*MappingRecord `json:"records"`
}

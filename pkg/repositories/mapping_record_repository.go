package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ayubridge/mapping-engine/pkg/apperrors"
	"github.com/ayubridge/mapping-engine/pkg/database"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// MappingRecordRepository provides data access for mapping records. Records
// are superseded, never deleted: at most one row per mapping key is active,
// and older rows stay behind for audit.
type MappingRecordRepository interface {
	// UpsertActive writes the record for its run and flips any previously
	// active record for the same key to inactive. Idempotent for a fixed
	// run identifier: re-running after a crash updates the same row instead
	// of duplicating it.
	UpsertActive(ctx context.Context, record *models.MappingRecord) error
	GetActiveByKey(ctx context.Context, key models.MappingKey) (*models.MappingRecord, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.MappingRecord, error)
	// ListActiveBySource returns all active records for one source term.
	ListActiveBySource(ctx context.Context, sourceSystem, sourceCode string) ([]*models.MappingRecord, error)
}

type mappingRecordRepository struct {
	db *database.DB
}

// NewMappingRecordRepository creates a new MappingRecordRepository.
func NewMappingRecordRepository(db *database.DB) MappingRecordRepository {
	return &mappingRecordRepository{db: db}
}

var _ MappingRecordRepository = (*mappingRecordRepository)(nil)

const mappingRecordColumns = `
	id, run_id, source_system, source_code, source_display,
	target_system, target_code, target_display, tier, equivalence,
	signals, source_release, target_release, active,
	reviewer_score, reviewer_notes, created_at`

func (r *mappingRecordRepository) UpsertActive(ctx context.Context, record *models.MappingRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Supersede whatever other run currently owns this key. The row stays
	// in place with active=false to preserve audit history.
	supersede := `
		UPDATE engine_mapping_records
		SET active = false
		WHERE source_system = $1 AND source_code = $2 AND target_system = $3
		  AND source_release = $4 AND target_release = $5
		  AND active = true AND run_id <> $6`
	if _, err := tx.Exec(ctx, supersede,
		record.SourceSystem, record.SourceCode, record.TargetSystem,
		record.SourceRelease, record.TargetRelease, record.RunID,
	); err != nil {
		return fmt.Errorf("%w: supersede: %v", apperrors.ErrStoreUnavailable, err)
	}

	signals, err := json.Marshal(record.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signal breakdown: %w", err)
	}

	now := time.Now().UTC()
	insert := `
		INSERT INTO engine_mapping_records (
			run_id, source_system, source_code, source_display,
			target_system, target_code, target_display, tier, equivalence,
			signals, source_release, target_release, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true, $13)
		ON CONFLICT (run_id, source_system, source_code, target_system, source_release, target_release)
		DO UPDATE SET
			target_code = EXCLUDED.target_code,
			target_display = EXCLUDED.target_display,
			tier = EXCLUDED.tier,
			equivalence = EXCLUDED.equivalence,
			signals = EXCLUDED.signals,
			active = true
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, insert,
		record.RunID,
		record.SourceSystem,
		record.SourceCode,
		record.SourceDisplay,
		record.TargetSystem,
		nullString(record.TargetCode),
		nullString(record.TargetDisplay),
		record.Tier,
		record.Equivalence,
		signals,
		record.SourceRelease,
		record.TargetRelease,
		now,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert mapping record: %v", apperrors.ErrStoreUnavailable, err)
	}
	record.Active = true

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *mappingRecordRepository) GetActiveByKey(ctx context.Context, key models.MappingKey) (*models.MappingRecord, error) {
	query := `
		SELECT ` + mappingRecordColumns + `
		FROM engine_mapping_records
		WHERE source_system = $1 AND source_code = $2 AND target_system = $3
		  AND source_release = $4 AND target_release = $5
		  AND active = true`
	row := r.db.QueryRow(ctx, query,
		key.SourceSystem, key.SourceCode, key.TargetSystem,
		key.SourceRelease, key.TargetRelease)

	record, err := scanMappingRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *mappingRecordRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.MappingRecord, error) {
	query := `
		SELECT ` + mappingRecordColumns + `
		FROM engine_mapping_records
		WHERE run_id = $1
		ORDER BY source_code, target_system, target_code`
	return r.queryRecords(ctx, query, runID)
}

func (r *mappingRecordRepository) ListActiveBySource(ctx context.Context, sourceSystem, sourceCode string) ([]*models.MappingRecord, error) {
	query := `
		SELECT ` + mappingRecordColumns + `
		FROM engine_mapping_records
		WHERE source_system = $1 AND source_code = $2 AND active = true
		ORDER BY target_system, target_code`
	return r.queryRecords(ctx, query, sourceSystem, sourceCode)
}

func (r *mappingRecordRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*models.MappingRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping records: %w", err)
	}
	defer rows.Close()

	var records []*models.MappingRecord
	for rows.Next() {
		record, err := scanMappingRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapping records: %w", err)
	}
	return records, nil
}

func scanMappingRecord(row pgx.Row) (*models.MappingRecord, error) {
	var rec models.MappingRecord
	var targetCode, targetDisplay, reviewerNotes *string
	var signals []byte

	err := row.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.SourceSystem,
		&rec.SourceCode,
		&rec.SourceDisplay,
		&rec.TargetSystem,
		&targetCode,
		&targetDisplay,
		&rec.Tier,
		&rec.Equivalence,
		&signals,
		&rec.SourceRelease,
		&rec.TargetRelease,
		&rec.Active,
		&rec.ReviewerScore,
		&reviewerNotes,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan mapping record: %w", err)
	}

	if targetCode != nil {
		rec.TargetCode = *targetCode
	}
	if targetDisplay != nil {
		rec.TargetDisplay = *targetDisplay
	}
	if reviewerNotes != nil {
		rec.ReviewerNotes = *reviewerNotes
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &rec.Signals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal breakdown: %w", err)
		}
	}
	return &rec, nil
}

// nullString returns nil for empty strings so the column stores NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

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

// MappingRunRepository provides data access for mapping runs.
type MappingRunRepository interface {
	// Create inserts a run in running state. Re-creating an existing run
	// identifier resumes it rather than failing, so an interrupted run can
	// be retried under the same identifier.
	Create(ctx context.Context, run *models.MappingRun) error
	// Finish stamps the terminal status and stats. Runs are immutable once
	// a terminal status is set.
	Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, stats models.RunStats) error
	GetByID(ctx context.Context, runID uuid.UUID) (*models.MappingRun, error)
}

type mappingRunRepository struct {
	db *database.DB
}

// NewMappingRunRepository creates a new MappingRunRepository.
func NewMappingRunRepository(db *database.DB) MappingRunRepository {
	return &mappingRunRepository{db: db}
}

var _ MappingRunRepository = (*mappingRunRepository)(nil)

func (r *mappingRunRepository) Create(ctx context.Context, run *models.MappingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Status = models.RunStatusRunning
	run.StartedAt = time.Now().UTC()

	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats: %w", err)
	}

	query := `
		INSERT INTO engine_mapping_runs (id, source_release, target_release, status, stats, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = $4`
	if _, err := r.db.Exec(ctx, query,
		run.ID, run.SourceRelease, run.TargetRelease, run.Status, stats, run.StartedAt,
	); err != nil {
		return fmt.Errorf("%w: create mapping run: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *mappingRunRepository) Finish(ctx context.Context, runID uuid.UUID, status models.RunStatus, stats models.RunStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats: %w", err)
	}

	query := `
		UPDATE engine_mapping_runs
		SET status = $2, stats = $3, completed_at = $4
		WHERE id = $1 AND status = 'running'`
	result, err := r.db.Exec(ctx, query, runID, status, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: finish mapping run: %v", apperrors.ErrStoreUnavailable, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *mappingRunRepository) GetByID(ctx context.Context, runID uuid.UUID) (*models.MappingRun, error) {
	query := `
		SELECT id, source_release, target_release, status, stats, started_at, completed_at
		FROM engine_mapping_runs
		WHERE id = $1`

	var run models.MappingRun
	var stats []byte
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.SourceRelease,
		&run.TargetRelease,
		&run.Status,
		&stats,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mapping run: %w", err)
	}

	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run stats: %w", err)
		}
	}
	return &run, nil
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ayubridge/mapping-engine/pkg/database"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// FeedbackRepository stores reviewer validation feedback. Rows are
// append-only; corrections are expressed as additional rows that shift the
// running average rather than edits to history.
type FeedbackRepository interface {
	Append(ctx context.Context, feedback *models.ValidationFeedback) error
	// AverageScores folds all feedback for a source term into one running
	// weighted average per target code, in feedback arrival order. Newer
	// reviews weigh more: each row averages against the fold so far.
	AverageScores(ctx context.Context, sourceSystem, sourceCode string) (map[string]float64, error)
	ListBySource(ctx context.Context, sourceSystem, sourceCode string) ([]*models.ValidationFeedback, error)
}

type feedbackRepository struct {
	db *database.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *database.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

func (r *feedbackRepository) Append(ctx context.Context, feedback *models.ValidationFeedback) error {
	query := `
		INSERT INTO engine_mapping_validations (
			reviewer_id, source_system, source_code, target_system, target_code,
			score, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		feedback.ReviewerID,
		feedback.SourceSystem,
		feedback.SourceCode,
		feedback.TargetSystem,
		feedback.TargetCode,
		feedback.Score,
		nullString(feedback.Notes),
		time.Now().UTC(),
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append validation feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) AverageScores(ctx context.Context, sourceSystem, sourceCode string) (map[string]float64, error) {
	query := `
		SELECT target_code, score
		FROM engine_mapping_validations
		WHERE source_system = $1 AND source_code = $2
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, sourceSystem, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation feedback: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	seen := make(map[string]bool)
	for rows.Next() {
		var targetCode string
		var score float64
		if err := rows.Scan(&targetCode, &score); err != nil {
			return nil, fmt.Errorf("failed to scan validation feedback: %w", err)
		}
		if !seen[targetCode] {
			seen[targetCode] = true
			scores[targetCode] = score
			continue
		}
		scores[targetCode] = (scores[targetCode] + score) / 2
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating validation feedback: %w", err)
	}
	return scores, nil
}

func (r *feedbackRepository) ListBySource(ctx context.Context, sourceSystem, sourceCode string) ([]*models.ValidationFeedback, error) {
	query := `
		SELECT id, reviewer_id, source_system, source_code, target_system, target_code,
		       score, COALESCE(notes, ''), created_at
		FROM engine_mapping_validations
		WHERE source_system = $1 AND source_code = $2
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, sourceSystem, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation feedback: %w", err)
	}
	defer rows.Close()

	var out []*models.ValidationFeedback
	for rows.Next() {
		var fb models.ValidationFeedback
		if err := rows.Scan(
			&fb.ID, &fb.ReviewerID, &fb.SourceSystem, &fb.SourceCode,
			&fb.TargetSystem, &fb.TargetCode, &fb.Score, &fb.Notes, &fb.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan validation feedback: %w", err)
		}
		out = append(out, &fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating validation feedback: %w", err)
	}
	return out, nil
}

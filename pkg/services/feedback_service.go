package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/apperrors"
	"github.com/ayubridge/mapping-engine/pkg/models"
	"github.com/ayubridge/mapping-engine/pkg/repositories"
)

// FeedbackService accepts reviewer validation feedback and serves the folded
// scores the validation signal consumes. Feedback never mutates existing
// mapping records; it only influences the next run.
type FeedbackService interface {
	// Submit validates and appends one piece of reviewer feedback.
	Submit(ctx context.Context, feedback *models.ValidationFeedback) error
	// SnapshotScores returns the folded reviewer score per target code for
	// one source term, as of the moment of the call. The engine takes one
	// snapshot per term at scoring time so a run is internally consistent.
	SnapshotScores(ctx context.Context, sourceSystem, sourceCode string) (map[string]float64, error)
	// History lists the raw feedback rows for a source term, oldest first.
	History(ctx context.Context, sourceSystem, sourceCode string) ([]*models.ValidationFeedback, error)
}

type feedbackService struct {
	repo   repositories.FeedbackRepository
	logger *zap.Logger
}

var _ FeedbackService = (*feedbackService)(nil)

func NewFeedbackService(repo repositories.FeedbackRepository, logger *zap.Logger) FeedbackService {
	return &feedbackService{
		repo:   repo,
		logger: logger.Named("feedback_service"),
	}
}

func (s *feedbackService) Submit(ctx context.Context, feedback *models.ValidationFeedback) error {
	if feedback.Score < 0 || feedback.Score > 1 {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidScore, feedback.Score)
	}
	if strings.TrimSpace(feedback.ReviewerID) == "" {
		return fmt.Errorf("reviewer id is required")
	}
	if feedback.SourceCode == "" || feedback.TargetCode == "" {
		return fmt.Errorf("source and target codes are required")
	}

	if err := s.repo.Append(ctx, feedback); err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	s.logger.Info("Reviewer feedback recorded",
		zap.String("source_code", feedback.SourceCode),
		zap.String("target_code", feedback.TargetCode),
		zap.Float64("score", feedback.Score))
	return nil
}

func (s *feedbackService) SnapshotScores(ctx context.Context, sourceSystem, sourceCode string) (map[string]float64, error) {
	scores, err := s.repo.AverageScores(ctx, sourceSystem, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback scores: %w", err)
	}
	return scores, nil
}

func (s *feedbackService) History(ctx context.Context, sourceSystem, sourceCode string) ([]*models.ValidationFeedback, error) {
	rows, err := s.repo.ListBySource(ctx, sourceSystem, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback history: %w", err)
	}
	return rows, nil
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/apperrors"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// ============================================================================
// Mock Implementations for Feedback Service Tests
// ============================================================================

type mockFeedbackRepo struct {
	appended  []*models.ValidationFeedback
	scores    map[string]float64
	appendErr error
	avgErr    error
}

func (m *mockFeedbackRepo) Append(ctx context.Context, feedback *models.ValidationFeedback) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, feedback)
	return nil
}

func (m *mockFeedbackRepo) AverageScores(ctx context.Context, sourceSystem, sourceCode string) (map[string]float64, error) {
	if m.avgErr != nil {
		return nil, m.avgErr
	}
	return m.scores, nil
}

func (m *mockFeedbackRepo) ListBySource(ctx context.Context, sourceSystem, sourceCode string) ([]*models.ValidationFeedback, error) {
	return m.appended, nil
}

func validFeedback() *models.ValidationFeedback {
	return &models.ValidationFeedback{
		ReviewerID:   "reviewer-1",
		SourceSystem: testSourceURI,
		SourceCode:   "AYU-060",
		TargetSystem: testTM2URI,
		TargetCode:   "SP00",
		Score:        0.8,
	}
}

func TestFeedbackService_Submit(t *testing.T) {
	repo := &mockFeedbackRepo{}
	service := NewFeedbackService(repo, zap.NewNop())

	err := service.Submit(context.Background(), validFeedback())
	require.NoError(t, err)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, "SP00", repo.appended[0].TargetCode)
}

func TestFeedbackService_Submit_ScoreOutOfRange(t *testing.T) {
	repo := &mockFeedbackRepo{}
	service := NewFeedbackService(repo, zap.NewNop())

	for _, score := range []float64{-0.1, 1.1} {
		feedback := validFeedback()
		feedback.Score = score
		err := service.Submit(context.Background(), feedback)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidScore)
	}
	assert.Empty(t, repo.appended)
}

func TestFeedbackService_Submit_BoundaryScores(t *testing.T) {
	repo := &mockFeedbackRepo{}
	service := NewFeedbackService(repo, zap.NewNop())

	for _, score := range []float64{0, 1} {
		feedback := validFeedback()
		feedback.Score = score
		require.NoError(t, service.Submit(context.Background(), feedback))
	}
	assert.Len(t, repo.appended, 2)
}

func TestFeedbackService_Submit_MissingReviewer(t *testing.T) {
	service := NewFeedbackService(&mockFeedbackRepo{}, zap.NewNop())

	feedback := validFeedback()
	feedback.ReviewerID = "  "
	err := service.Submit(context.Background(), feedback)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reviewer id is required")
}

func TestFeedbackService_Submit_MissingCodes(t *testing.T) {
	service := NewFeedbackService(&mockFeedbackRepo{}, zap.NewNop())

	feedback := validFeedback()
	feedback.TargetCode = ""
	err := service.Submit(context.Background(), feedback)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codes are required")
}

func TestFeedbackService_SnapshotScores(t *testing.T) {
	repo := &mockFeedbackRepo{scores: map[string]float64{"SP00": 0.85}}
	service := NewFeedbackService(repo, zap.NewNop())

	scores, err := service.SnapshotScores(context.Background(), testSourceURI, "AYU-060")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, scores["SP00"], 1e-9)
}

func TestFeedbackService_SnapshotScores_RepoError(t *testing.T) {
	repo := &mockFeedbackRepo{avgErr: errors.New("connection refused")}
	service := NewFeedbackService(repo, zap.NewNop())

	_, err := service.SnapshotScores(context.Background(), testSourceURI, "AYU-060")
	require.Error(t, err)
}

package services

import (
	"context"

	"github.com/ayubridge/mapping-engine/pkg/models"
)

// CandidateSearcher is the shared capability of the three retrieval
// strategies. Search receives the normalized query variants produced by the
// Normalizer for one source term and returns zero or more candidate targets.
// An error means the source could not be consulted at all; the engine records
// the failure and continues with the remaining sources.
type CandidateSearcher interface {
	Source() models.CandidateSource
	Search(ctx context.Context, term *models.Term, queries []string) ([]models.CandidateTarget, error)
}

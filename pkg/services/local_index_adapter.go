package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
	"github.com/ayubridge/mapping-engine/pkg/repositories"
)

// localIndexAdapter retrieves candidates from the locally ingested ICD-11
// code table using full-text search. It issues a single representative query
// (the normalized display form) rather than the full variant fan-out; the
// local index is cheap but its recall does not improve with paraphrases.
type localIndexAdapter struct {
	codes       repositories.ICDCodeRepository
	terminology *config.TerminologyConfig
	topK        int
	logger      *zap.Logger
}

var _ CandidateSearcher = (*localIndexAdapter)(nil)

func NewLocalIndexAdapter(
	codes repositories.ICDCodeRepository,
	terminology *config.TerminologyConfig,
	topK int,
	logger *zap.Logger,
) CandidateSearcher {
	return &localIndexAdapter{
		codes:       codes,
		terminology: terminology,
		topK:        topK,
		logger:      logger.Named("local_index_adapter"),
	}
}

func (a *localIndexAdapter) Source() models.CandidateSource {
	return models.SourceLocalIndex
}

func (a *localIndexAdapter) Search(ctx context.Context, term *models.Term, queries []string) ([]models.CandidateTarget, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	representative := queries[0]
	rows, err := a.codes.Search(ctx, representative, a.topK)
	if err != nil {
		return nil, fmt.Errorf("local index search for %q: %w", term.Code, err)
	}

	candidates := make([]models.CandidateTarget, 0, len(rows))
	for _, row := range rows {
		systemURI := a.terminology.MMSSystemURI
		if row.TM2 {
			systemURI = a.terminology.TM2SystemURI
		}
		candidates = append(candidates, models.CandidateTarget{
			Code:       row.Code,
			Display:    row.Title,
			Definition: row.Definition,
			SystemURI:  systemURI,
			Chapter:    row.Chapter,
			Source:     models.SourceLocalIndex,
		})
	}

	a.logger.Debug("Local index search complete",
		zap.String("source_code", term.Code),
		zap.String("query", representative),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

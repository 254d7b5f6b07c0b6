package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
	"github.com/ayubridge/mapping-engine/pkg/whoicd"
)

// tmChapterFilter restricts WHO searches to the traditional-medicine
// chapters of ICD-11.
const tmChapterFilter = "TM1,TM2"

// ICDSearchClient is the slice of the WHO API client the remote adapter
// consumes.
type ICDSearchClient interface {
	SearchEntities(ctx context.Context, query string, limit int, chapterFilter string) ([]whoicd.Entity, error)
}

// remoteAPIAdapter retrieves candidates from the WHO ICD-11 API. Every query
// variant is searched first with the traditional-medicine chapter filter;
// a variant with no filtered hits is retried unfiltered so biomedical (MMS)
// candidates still surface. Traditional-medicine entities are emitted ahead
// of biomedical ones and collection stops once topK distinct codes are found.
type remoteAPIAdapter struct {
	client      ICDSearchClient
	terminology *config.TerminologyConfig
	topK        int
	perCall     time.Duration
	logger      *zap.Logger
}

var _ CandidateSearcher = (*remoteAPIAdapter)(nil)

func NewRemoteAPIAdapter(
	client ICDSearchClient,
	terminology *config.TerminologyConfig,
	topK int,
	perCallTimeout time.Duration,
	logger *zap.Logger,
) CandidateSearcher {
	return &remoteAPIAdapter{
		client:      client,
		terminology: terminology,
		topK:        topK,
		perCall:     perCallTimeout,
		logger:      logger.Named("remote_api_adapter"),
	}
}

func (a *remoteAPIAdapter) Source() models.CandidateSource {
	return models.SourceRemoteAPI
}

func (a *remoteAPIAdapter) Search(ctx context.Context, term *models.Term, queries []string) ([]models.CandidateTarget, error) {
	var (
		tm2        []models.CandidateTarget
		biomedical []models.CandidateTarget
		seen       = map[string]bool{}
		lastErr    error
		succeeded  bool
	)

	for _, query := range queries {
		if len(tm2)+len(biomedical) >= a.topK {
			break
		}
		if len([]rune(query)) < minQueryLength {
			continue
		}

		entities, err := a.searchWithFallback(ctx, query)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		succeeded = true

		for _, entity := range entities {
			code := entity.Code()
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true

			candidate := models.CandidateTarget{
				Code:       code,
				Display:    string(entity.Title),
				Definition: string(entity.Definition),
				SystemURI:  a.terminology.MMSSystemURI,
				Chapter:    entity.Chapter,
				Source:     models.SourceRemoteAPI,
			}
			if entity.IsTraditionalMedicine() {
				candidate.SystemURI = a.terminology.TM2SystemURI
				tm2 = append(tm2, candidate)
			} else {
				biomedical = append(biomedical, candidate)
			}
		}
	}

	if !succeeded && lastErr != nil {
		return nil, fmt.Errorf("remote search for %q: %w", term.Code, lastErr)
	}

	candidates := append(tm2, biomedical...)
	if len(candidates) > a.topK {
		candidates = candidates[:a.topK]
	}

	a.logger.Debug("Remote search complete",
		zap.String("source_code", term.Code),
		zap.Int("queries", len(queries)),
		zap.Int("tm2_candidates", len(tm2)),
		zap.Int("biomedical_candidates", len(biomedical)))
	return candidates, nil
}

// searchWithFallback runs one query against the TM chapters and retries
// without the filter when the filtered search comes back empty.
func (a *remoteAPIAdapter) searchWithFallback(ctx context.Context, query string) ([]whoicd.Entity, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.perCall)
	defer cancel()

	entities, err := a.client.SearchEntities(callCtx, query, a.topK, tmChapterFilter)
	if err != nil {
		return nil, err
	}
	if len(entities) > 0 {
		return entities, nil
	}

	retryCtx, retryCancel := context.WithTimeout(ctx, a.perCall)
	defer retryCancel()
	return a.client.SearchEntities(retryCtx, query, a.topK, "")
}

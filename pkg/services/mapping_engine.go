package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayubridge/mapping-engine/pkg/apperrors"
	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
	"github.com/ayubridge/mapping-engine/pkg/repositories"
)

// finishTimeout bounds the final status write of a run. It uses a fresh
// context so a cancelled run still gets its terminal status stamped.
const finishTimeout = 10 * time.Second

// MappingEngine orchestrates classification runs: candidate retrieval
// through all sources, scoring, tier classification, assembly and
// persistence, under a bounded worker pool.
type MappingEngine interface {
	// Run executes a full classification pass over all source terms. The
	// returned run carries the terminal status and stats. Cancellation mid
	// run keeps everything already persisted and marks the run partial.
	Run(ctx context.Context, runID uuid.UUID) (*models.MappingRun, error)
	// MapTerm classifies a single term without touching storage. Used for
	// dry-run inspection of how a term would map.
	MapTerm(ctx context.Context, term *models.Term) ([]models.MappingCandidate, error)
	// Translate returns the active mappings for one source code, grouped by
	// target terminology.
	Translate(ctx context.Context, sourceCode string) ([]models.TranslationGroup, error)
}

type mappingEngine struct {
	cfg        *config.Config
	terms      repositories.TermRepository
	records    repositories.MappingRecordRepository
	runs       repositories.MappingRunRepository
	feedback   FeedbackService
	normalizer *Normalizer
	// adapters are consulted in slice order, which is source priority order.
	adapters   []CandidateSearcher
	scorer     *SignalScorer
	classifier *TierClassifier
	assembler  *MappingAssembler
	logger     *zap.Logger
}

var _ MappingEngine = (*mappingEngine)(nil)

func NewMappingEngine(
	cfg *config.Config,
	terms repositories.TermRepository,
	records repositories.MappingRecordRepository,
	runs repositories.MappingRunRepository,
	feedback FeedbackService,
	normalizer *Normalizer,
	adapters []CandidateSearcher,
	scorer *SignalScorer,
	classifier *TierClassifier,
	assembler *MappingAssembler,
	logger *zap.Logger,
) MappingEngine {
	return &mappingEngine{
		cfg:        cfg,
		terms:      terms,
		records:    records,
		runs:       runs,
		feedback:   feedback,
		normalizer: normalizer,
		adapters:   adapters,
		scorer:     scorer,
		classifier: classifier,
		assembler:  assembler,
		logger:     logger.Named("mapping_engine"),
	}
}

// termOutcome is what one worker reports back for stats accumulation.
type termOutcome struct {
	records  []*models.MappingRecord
	failures map[models.CandidateSource]int
}

func (e *mappingEngine) Run(ctx context.Context, runID uuid.UUID) (*models.MappingRun, error) {
	if err := e.cfg.ValidateForRun(); err != nil {
		return nil, err
	}

	terms, err := e.terms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load source terms: %w", err)
	}

	run := &models.MappingRun{
		ID:            runID,
		SourceRelease: e.cfg.Terminology.SourceRelease,
		TargetRelease: e.cfg.Terminology.TargetRelease,
		Status:        models.RunStatusRunning,
		Stats:         models.NewRunStats(),
		StartedAt:     time.Now().UTC(),
	}
	if err := e.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	e.logger.Info("Mapping run started",
		zap.String("run_id", runID.String()),
		zap.Int("terms", len(terms)),
		zap.String("source_release", run.SourceRelease),
		zap.String("target_release", run.TargetRelease))

	var (
		mu           sync.Mutex
		stats        = models.NewRunStats()
		aggregateSum float64
		recordCount  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Mapping.Workers)
	for _, term := range terms {
		term := term
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			outcome, err := e.mapAndPersist(gctx, runID, term)
			if err != nil {
				return err
			}

			mu.Lock()
			stats.TermsProcessed++
			for source, count := range outcome.failures {
				stats.AdapterFailures[source] += count
			}
			for _, record := range outcome.records {
				stats.TierCounts[record.Tier]++
				aggregateSum += record.Signals.Aggregate
				recordCount++
			}
			mu.Unlock()
			return nil
		})
	}

	runErr := g.Wait()
	if recordCount > 0 {
		stats.AverageAggregate = aggregateSum / float64(recordCount)
	}

	status := models.RunStatusCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		status = models.RunStatusPartial
	default:
		status = models.RunStatusFailed
	}

	finishCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := e.runs.Finish(finishCtx, runID, status, stats); err != nil {
		e.logger.Error("Failed to finalize run", zap.String("run_id", runID.String()), zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("failed to finalize run: %w", err)
		}
	}

	run.Status = status
	run.Stats = stats
	now := time.Now().UTC()
	run.CompletedAt = &now

	e.logger.Info("Mapping run finished",
		zap.String("run_id", runID.String()),
		zap.String("status", string(status)),
		zap.Int("terms_processed", stats.TermsProcessed),
		zap.Float64("average_aggregate", stats.AverageAggregate))

	switch status {
	case models.RunStatusPartial:
		return run, fmt.Errorf("%w: %s", apperrors.ErrRunIncomplete, runErr)
	case models.RunStatusFailed:
		return run, runErr
	}
	return run, runErr
}

func (e *mappingEngine) MapTerm(ctx context.Context, term *models.Term) ([]models.MappingCandidate, error) {
	candidates, _, err := e.classifyTerm(ctx, term)
	return candidates, err
}

func (e *mappingEngine) Translate(ctx context.Context, sourceCode string) ([]models.TranslationGroup, error) {
	records, err := e.records.ListActiveBySource(ctx, e.cfg.Terminology.SourceSystemURI, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings for %q: %w", sourceCode, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no active mappings for %q", apperrors.ErrNotFound, sourceCode)
	}
	return GroupRecords(records), nil
}

// mapAndPersist classifies one term and writes its records. Adapter failures
// degrade coverage and are reported in the outcome; a persistence failure is
// fatal and aborts the run.
func (e *mappingEngine) mapAndPersist(ctx context.Context, runID uuid.UUID, term *models.Term) (termOutcome, error) {
	candidates, failures, err := e.classifyTerm(ctx, term)
	if err != nil {
		return termOutcome{}, err
	}

	records := e.assembler.Assemble(runID, term, candidates)
	for _, record := range records {
		if err := e.records.UpsertActive(ctx, record); err != nil {
			return termOutcome{}, fmt.Errorf("%w: persisting mapping for %q: %w",
				apperrors.ErrStoreUnavailable, term.Code, err)
		}
	}
	return termOutcome{records: records, failures: failures}, nil
}

// classifyTerm runs retrieval, scoring and classification for one term. All
// candidate sources are consulted concurrently; a failing source contributes
// an empty pool and a failure count, never an error.
func (e *mappingEngine) classifyTerm(ctx context.Context, term *models.Term) ([]models.MappingCandidate, map[models.CandidateSource]int, error) {
	queries := e.normalizer.SearchStrings(term)
	if max := e.cfg.Mapping.SearchTermsPerCode; len(queries) > max {
		queries = queries[:max]
	}

	// Snapshot reviewer feedback once so every candidate of this term scores
	// against the same validation state.
	validation, err := e.feedback.SnapshotScores(ctx, e.cfg.Terminology.SourceSystemURI, term.Code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: feedback snapshot for %q: %w",
			apperrors.ErrStoreUnavailable, term.Code, err)
	}

	pools := make([][]models.CandidateTarget, len(e.adapters))
	failures := map[models.CandidateSource]int{}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i, adapter := range e.adapters {
		i, adapter := i, adapter
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool, err := adapter.Search(ctx, term, queries)
			if err != nil {
				e.logger.Warn("Candidate source degraded",
					zap.String("source", string(adapter.Source())),
					zap.String("source_code", term.Code),
					zap.Error(err))
				mu.Lock()
				failures[adapter.Source()]++
				mu.Unlock()
				return
			}
			pools[i] = pool
		}()
	}
	wg.Wait()

	merged := MergeCandidates(e.cfg.Mapping.MaxCandidates, pools...)
	candidates := make([]models.MappingCandidate, 0, len(merged))
	for _, target := range merged {
		signals := e.scorer.Score(term, target, validation)
		tier, equivalence := e.classifier.Classify(target, signals)
		candidates = append(candidates, models.MappingCandidate{
			Term:        term,
			Target:      target,
			Signals:     signals,
			Tier:        tier,
			Equivalence: equivalence,
		})
	}
	SortCandidates(candidates)
	return candidates, failures, nil
}

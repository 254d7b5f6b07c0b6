package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// ruleBridgeAdapter matches source terms against the curated semantic-bridge
// table. A bridge concept fires when its trigger keyword appears in any
// normalized query variant of the term. Bridge candidates carry no clinical
// definition; the concept display doubles as definition text so downstream
// scoring has something to work with.
type ruleBridgeAdapter struct {
	tables      *RuleTables
	terminology *config.TerminologyConfig
	logger      *zap.Logger
}

var _ CandidateSearcher = (*ruleBridgeAdapter)(nil)

func NewRuleBridgeAdapter(tables *RuleTables, terminology *config.TerminologyConfig, logger *zap.Logger) CandidateSearcher {
	return &ruleBridgeAdapter{
		tables:      tables,
		terminology: terminology,
		logger:      logger.Named("rule_bridge_adapter"),
	}
}

func (a *ruleBridgeAdapter) Source() models.CandidateSource {
	return models.SourceRuleBridge
}

func (a *ruleBridgeAdapter) Search(_ context.Context, term *models.Term, queries []string) ([]models.CandidateTarget, error) {
	matched := map[string]bool{}
	for _, query := range queries {
		compact := strings.ReplaceAll(NormalizeText(query), " ", "")
		for _, key := range a.tables.BridgeKeys() {
			if strings.Contains(compact, key) {
				matched[key] = true
			}
		}
	}

	var candidates []models.CandidateTarget
	for _, key := range a.tables.BridgeKeys() {
		if !matched[key] {
			continue
		}
		concept := a.tables.SemanticBridges[key]
		candidates = append(candidates, models.CandidateTarget{
			Code:       concept.Code,
			Display:    concept.Display,
			Definition: concept.Display,
			SystemURI:  a.terminology.BridgeSystemURI,
			Source:     models.SourceRuleBridge,
		})
	}

	if len(candidates) > 0 {
		a.logger.Debug("Bridge concepts matched",
			zap.String("source_code", term.Code),
			zap.Int("candidates", len(candidates)))
	}
	return candidates, nil
}

package services

import (
	"sort"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// TierClassifier assigns the confidence tier and equivalence label to scored
// candidates. Classification depends only on the candidate's target system
// and aggregate score, so it is stateless and safe for concurrent use.
type TierClassifier struct {
	cfg         *config.MappingConfig
	terminology *config.TerminologyConfig
}

func NewTierClassifier(cfg *config.MappingConfig, terminology *config.TerminologyConfig) *TierClassifier {
	return &TierClassifier{cfg: cfg, terminology: terminology}
}

// Classify maps one scored candidate to its tier. Biomedical candidates that
// miss the biomedical threshold but clear the unmappable floor still produce
// a mapping, marked inexact, so reviewers see the near miss instead of a gap.
func (c *TierClassifier) Classify(target models.CandidateTarget, signals models.SignalBreakdown) (models.MappingTier, models.Equivalence) {
	aggregate := signals.Aggregate

	switch target.SystemURI {
	case c.terminology.TM2SystemURI:
		if aggregate >= c.cfg.DirectThreshold {
			return models.TierDirect, models.EquivalenceEquivalent
		}
	case c.terminology.MMSSystemURI:
		if aggregate >= c.cfg.BiomedicalThreshold {
			return models.TierBiomedical, models.EquivalenceRelatedTo
		}
	case c.terminology.BridgeSystemURI:
		if aggregate >= c.cfg.SemanticThreshold {
			return models.TierSemantic, models.EquivalenceNarrower
		}
		return models.TierUnmappable, models.EquivalenceUnmatched
	}

	if aggregate >= c.cfg.UnmappableFloor {
		return models.TierBiomedical, models.EquivalenceInexact
	}
	return models.TierUnmappable, models.EquivalenceUnmatched
}

// tierRank orders tiers best-first for candidate selection.
func tierRank(tier models.MappingTier) int {
	switch tier {
	case models.TierDirect:
		return 0
	case models.TierBiomedical:
		return 1
	case models.TierSemantic:
		return 2
	default:
		return 3
	}
}

// SortCandidates orders classified candidates deterministically: higher
// aggregate first, then source priority, then target code. Ties are fully
// resolved so repeated runs over identical inputs produce identical output.
func SortCandidates(candidates []models.MappingCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Signals.Aggregate != b.Signals.Aggregate {
			return a.Signals.Aggregate > b.Signals.Aggregate
		}
		if pa, pb := models.SourcePriority(a.Target.Source), models.SourcePriority(b.Target.Source); pa != pb {
			return pa < pb
		}
		return a.Target.Code < b.Target.Code
	})
}

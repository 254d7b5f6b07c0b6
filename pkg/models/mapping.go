package models

// ============================================================================
// Candidate Sources
// ============================================================================

// CandidateSource records which retrieval strategy found a candidate.
type CandidateSource string

const (
	SourceRuleBridge CandidateSource = "rule-bridge"
	SourceLocalIndex CandidateSource = "local-index"
	SourceRemoteAPI  CandidateSource = "remote-api"
)

// SourcePriority orders candidate sources by determinism. Lower is better.
// Used when the merged pool exceeds its cap and for score tie-breaks.
func SourcePriority(s CandidateSource) int {
	switch s {
	case SourceRuleBridge:
		return 0
	case SourceLocalIndex:
		return 1
	case SourceRemoteAPI:
		return 2
	default:
		return 3
	}
}

// ============================================================================
// Candidates
// ============================================================================

// CandidateTarget is a possible matching concept in a target terminology.
// Candidates are transient: they are reconstructed on every mapping run and
// never persisted on their own.
type CandidateTarget struct {
	Code       string          `json:"code"`
	Display    string          `json:"display"`
	Definition string          `json:"definition,omitempty"`
	SystemURI  string          `json:"system_uri"`
	Chapter    string          `json:"chapter,omitempty"`
	Source     CandidateSource `json:"source"`
}

// SignalBreakdown holds the five similarity signals and their weighted
// aggregate, each in [0,1]. It is embedded in candidates and records so
// every persisted mapping carries its scoring evidence.
type SignalBreakdown struct {
	Lexical    float64 `json:"lexical"`
	Definition float64 `json:"definition"`
	Synonym    float64 `json:"synonym"`
	Category   float64 `json:"category"`
	Validation float64 `json:"validation"`
	Aggregate  float64 `json:"aggregate"`
}

// MappingCandidate is a scored and classified (term, target) pair.
type MappingCandidate struct {
	Term        *Term           `json:"term"`
	Target      CandidateTarget `json:"target"`
	Signals     SignalBreakdown `json:"signals"`
	Tier        MappingTier     `json:"tier"`
	Equivalence Equivalence     `json:"equivalence"`
}

// ============================================================================
// Tiers and Equivalence
// ============================================================================

// MappingTier is the discrete confidence bucket assigned to a mapping.
type MappingTier string

const (
	TierDirect     MappingTier = "direct_tm2"
	TierBiomedical MappingTier = "biomedical"
	TierSemantic   MappingTier = "semantic"
	TierUnmappable MappingTier = "unmappable"
)

// ValidTiers contains all valid tier values.
var ValidTiers = []MappingTier{TierDirect, TierBiomedical, TierSemantic, TierUnmappable}

// Equivalence is the FHIR-style relationship label attached to a mapping.
type Equivalence string

const (
	EquivalenceEquivalent Equivalence = "equivalent"
	EquivalenceRelatedTo  Equivalence = "relatedto"
	EquivalenceNarrower   Equivalence = "narrower"
	EquivalenceInexact    Equivalence = "inexact"
	EquivalenceUnmatched  Equivalence = "unmatched"
)

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

const (
	testTM2URI    = "http://id.who.int/icd/release/11/mms/tm2"
	testMMSURI    = "http://id.who.int/icd/release/11/mms"
	testBridgeURI = "http://namaste.ayush.gov.in/fhir/CodeSystem/semantic-bridge"
	testSourceURI = "http://namaste.ayush.gov.in/fhir/CodeSystem/namaste"
)

func testMappingConfig() *config.MappingConfig {
	return &config.MappingConfig{
		LexicalWeight:       0.35,
		DefinitionWeight:    0.25,
		SynonymWeight:       0.20,
		CategoryWeight:      0.15,
		ValidationWeight:    0.05,
		DirectThreshold:     0.6,
		BiomedicalThreshold: 0.6,
		SemanticThreshold:   0.4,
		UnmappableFloor:     0.35,
		SynonymBoostTrigger: 0.4,
		BoostedAggregate:    0.6,
		TM2SynonymBonus:     1.15,
		LocalTopK:           5,
		RemoteTopK:          10,
		MaxCandidates:       15,
		SearchTermsPerCode:  12,
		Workers:             2,
	}
}

func testTerminologyConfig() *config.TerminologyConfig {
	return &config.TerminologyConfig{
		SourceSystemURI: testSourceURI,
		TM2SystemURI:    testTM2URI,
		MMSSystemURI:    testMMSURI,
		BridgeSystemURI: testBridgeURI,
		SourceRelease:   "2024.1",
		TargetRelease:   "2024-01",
	}
}

func newTestScorer(t *testing.T) *SignalScorer {
	t.Helper()
	tables, err := LoadRuleTables()
	require.NoError(t, err)
	return NewSignalScorer(testMappingConfig(), testTerminologyConfig(), tables)
}

func TestSignalScorer_IdenticalDisplays(t *testing.T) {
	scorer := newTestScorer(t)

	term := &models.Term{
		Code:       "AYU-010",
		Display:    "Fever disorder",
		Definition: "Elevated body temperature with malaise",
	}
	candidate := models.CandidateTarget{
		Code:       "1C62",
		Display:    "Fever disorder",
		Definition: "Elevated body temperature with malaise",
		SystemURI:  testMMSURI,
	}

	signals := scorer.Score(term, candidate, nil)
	assert.InDelta(t, 1.0, signals.Lexical, 1e-9)
	assert.InDelta(t, 1.0, signals.Definition, 1e-9)
	assert.GreaterOrEqual(t, signals.Aggregate, 0.6)
	assert.LessOrEqual(t, signals.Aggregate, 1.0)
}

func TestSignalScorer_AggregateIsWeightedSum(t *testing.T) {
	scorer := newTestScorer(t)
	cfg := testMappingConfig()

	term := &models.Term{Code: "AYU-011", Display: "Prameha", Definition: "Excessive urination with sweetness"}
	candidate := models.CandidateTarget{
		Code:       "5A11",
		Display:    "Type 2 diabetes mellitus",
		Definition: "Metabolic disorder with chronic hyperglycemia",
		SystemURI:  testMMSURI,
	}

	signals := scorer.Score(term, candidate, nil)
	expected := cfg.LexicalWeight*signals.Lexical +
		cfg.DefinitionWeight*signals.Definition +
		cfg.SynonymWeight*signals.Synonym +
		cfg.CategoryWeight*signals.Category +
		cfg.ValidationWeight*signals.Validation
	if signals.Synonym >= cfg.SynonymBoostTrigger && expected < cfg.BoostedAggregate {
		expected = cfg.BoostedAggregate
	}
	assert.InDelta(t, expected, signals.Aggregate, 1e-9)
}

func TestSignalScorer_SynonymBoostLiftsAggregate(t *testing.T) {
	scorer := newTestScorer(t)

	// Display and definition share nothing with the candidate; only the
	// declared synonym matches.
	term := &models.Term{
		Code:     "AYU-012",
		Display:  "Jvara roga",
		Synonyms: []string{"pyrexia of unknown origin"},
	}
	candidate := models.CandidateTarget{
		Code:      "MG26",
		Display:   "Pyrexia of unknown origin",
		SystemURI: testMMSURI,
	}

	signals := scorer.Score(term, candidate, nil)
	assert.GreaterOrEqual(t, signals.Synonym, 0.4)
	assert.GreaterOrEqual(t, signals.Aggregate, 0.6)
}

func TestSignalScorer_TM2SynonymBonus(t *testing.T) {
	scorer := newTestScorer(t)

	term := &models.Term{Code: "AYU-013", Display: "Kasa", Synonyms: []string{"persistent cough"}}
	tm2 := models.CandidateTarget{Code: "SR10", Display: "Persistent cough pattern", SystemURI: testTM2URI}
	mms := models.CandidateTarget{Code: "CA80", Display: "Persistent cough pattern", SystemURI: testMMSURI}

	tm2Signals := scorer.Score(term, tm2, nil)
	mmsSignals := scorer.Score(term, mms, nil)
	assert.Greater(t, tm2Signals.Synonym, mmsSignals.Synonym)
	assert.LessOrEqual(t, tm2Signals.Synonym, 1.0)
}

func TestSignalScorer_ValidationSignal(t *testing.T) {
	scorer := newTestScorer(t)

	// No lexical or synonym overlap, so the validation delta is visible in
	// the aggregate instead of being hidden by the synonym boost.
	term := &models.Term{Code: "AYU-014", Display: "Galaganda"}
	candidate := models.CandidateTarget{Code: "5A01", Display: "Goitre", SystemURI: testMMSURI}

	without := scorer.Score(term, candidate, nil)
	with := scorer.Score(term, candidate, map[string]float64{"5A01": 0.9})
	assert.Equal(t, 0.0, without.Validation)
	assert.InDelta(t, 0.9, with.Validation, 1e-9)
	assert.Greater(t, with.Aggregate, without.Aggregate)
}

func TestSignalScorer_CategorySignal(t *testing.T) {
	scorer := newTestScorer(t)

	term := &models.Term{
		Code:       "AYU-015",
		Display:    "Vata vyadhi",
		Categories: []string{"Ayurveda"},
	}
	aligned := models.CandidateTarget{
		Code:      "SP90",
		Display:   "Wind pattern disorder",
		Chapter:   "TM2",
		SystemURI: testTM2URI,
	}
	unrelated := models.CandidateTarget{
		Code:      "1A00",
		Display:   "Cholera",
		Chapter:   "01",
		SystemURI: testMMSURI,
	}

	assert.Equal(t, 1.0, scorer.Score(term, aligned, nil).Category)
	assert.Equal(t, 0.0, scorer.Score(term, unrelated, nil).Category)
}

func TestSignalScorer_EmptyInputs(t *testing.T) {
	scorer := newTestScorer(t)

	term := &models.Term{Code: "AYU-016"}
	candidate := models.CandidateTarget{Code: "XX00", SystemURI: testMMSURI}

	signals := scorer.Score(term, candidate, nil)
	assert.Equal(t, 0.0, signals.Lexical)
	assert.Equal(t, 0.0, signals.Definition)
	assert.Equal(t, 0.0, signals.Synonym)
	assert.Equal(t, 0.0, signals.Aggregate)
}

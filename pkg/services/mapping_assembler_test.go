package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayubridge/mapping-engine/pkg/models"
)

func scoredCandidate(term *models.Term, code, system string, aggregate float64, tier models.MappingTier, equivalence models.Equivalence) models.MappingCandidate {
	return models.MappingCandidate{
		Term:        term,
		Target:      models.CandidateTarget{Code: code, Display: code + " display", SystemURI: system},
		Signals:     models.SignalBreakdown{Aggregate: aggregate},
		Tier:        tier,
		Equivalence: equivalence,
	}
}

func TestMappingAssembler_BestPerTargetSystem(t *testing.T) {
	assembler := NewMappingAssembler(testTerminologyConfig())
	runID := uuid.New()
	term := &models.Term{Code: "AYU-020", Display: "Jvara"}

	candidates := []models.MappingCandidate{
		scoredCandidate(term, "SP00", testTM2URI, 0.8, models.TierDirect, models.EquivalenceEquivalent),
		scoredCandidate(term, "SP01", testTM2URI, 0.7, models.TierDirect, models.EquivalenceEquivalent),
		scoredCandidate(term, "1C62", testMMSURI, 0.65, models.TierBiomedical, models.EquivalenceRelatedTo),
		scoredCandidate(term, "XK7G.0", testBridgeURI, 0.5, models.TierSemantic, models.EquivalenceNarrower),
	}

	records := assembler.Assemble(runID, term, candidates)
	require.Len(t, records, 3)

	bySystem := map[string]*models.MappingRecord{}
	for _, record := range records {
		bySystem[record.TargetSystem] = record
		assert.Equal(t, runID, record.RunID)
		assert.Equal(t, testSourceURI, record.SourceSystem)
		assert.Equal(t, "AYU-020", record.SourceCode)
		assert.Equal(t, "2024.1", record.SourceRelease)
		assert.Equal(t, "2024-01", record.TargetRelease)
		assert.True(t, record.Active)
	}

	// The higher-scoring TM2 candidate wins its system.
	assert.Equal(t, "SP00", bySystem[testTM2URI].TargetCode)
	assert.Equal(t, "1C62", bySystem[testMMSURI].TargetCode)
	assert.Equal(t, "XK7G.0", bySystem[testBridgeURI].TargetCode)
}

func TestMappingAssembler_UnmappablePlaceholder(t *testing.T) {
	assembler := NewMappingAssembler(testTerminologyConfig())
	runID := uuid.New()
	term := &models.Term{Code: "AYU-021", Display: "Unknown concept"}

	records := assembler.Assemble(runID, term, nil)
	require.Len(t, records, 1)
	assert.Equal(t, models.TierUnmappable, records[0].Tier)
	assert.Equal(t, models.EquivalenceUnmatched, records[0].Equivalence)
	assert.Empty(t, records[0].TargetCode)
	assert.Equal(t, testMMSURI, records[0].TargetSystem)
	assert.True(t, records[0].Active)
}

func TestMappingAssembler_UnmappableCandidatesAreDropped(t *testing.T) {
	assembler := NewMappingAssembler(testTerminologyConfig())
	term := &models.Term{Code: "AYU-022", Display: "Weak match"}

	candidates := []models.MappingCandidate{
		scoredCandidate(term, "1A00", testMMSURI, 0.1, models.TierUnmappable, models.EquivalenceUnmatched),
		scoredCandidate(term, "1A01", testMMSURI, 0.2, models.TierUnmappable, models.EquivalenceUnmatched),
	}

	records := assembler.Assemble(uuid.New(), term, candidates)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].TargetCode)
	assert.Equal(t, models.TierUnmappable, records[0].Tier)
}

func TestGroupRecords(t *testing.T) {
	records := []*models.MappingRecord{
		{SourceSystem: testSourceURI, TargetSystem: testTM2URI, SourceCode: "B", TargetCode: "SP01"},
		{SourceSystem: testSourceURI, TargetSystem: testMMSURI, SourceCode: "A", TargetCode: "1C62"},
		{SourceSystem: testSourceURI, TargetSystem: testTM2URI, SourceCode: "A", TargetCode: "SP00"},
	}

	groups := GroupRecords(records)
	require.Len(t, groups, 2)

	// Groups ordered by target system, members by source code.
	assert.Equal(t, testMMSURI, groups[0].TargetSystem)
	assert.Equal(t, testTM2URI, groups[1].TargetSystem)
	require.Len(t, groups[1].Records, 2)
	assert.Equal(t, "A", groups[1].Records[0].SourceCode)
	assert.Equal(t, "B", groups[1].Records[1].SourceCode)
}

func TestGroupRecords_Empty(t *testing.T) {
	assert.Empty(t, GroupRecords(nil))
}

//go:build integration

package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ayubridge/mapping-engine/pkg/models"
	"github.com/ayubridge/mapping-engine/pkg/repositories"
	"github.com/ayubridge/mapping-engine/pkg/testhelpers"
)

const (
	sourceURI = "http://namaste.ayush.gov.in/fhir/CodeSystem/namaste"
	tm2URI    = "http://id.who.int/icd/release/11/mms/tm2"
	mmsURI    = "http://id.who.int/icd/release/11/mms"
)

// createRun inserts a running run row so record upserts satisfy the
// run foreign key.
func createRun(t *testing.T, runs repositories.MappingRunRepository) uuid.UUID {
	t.Helper()
	runID := uuid.New()
	err := runs.Create(context.Background(), &models.MappingRun{
		ID:            runID,
		SourceRelease: "2024.1",
		TargetRelease: "2024-01",
	})
	require.NoError(t, err)
	return runID
}

func testRecord(runID uuid.UUID, sourceCode, targetSystem, targetCode string) *models.MappingRecord {
	return &models.MappingRecord{
		RunID:         runID,
		SourceSystem:  sourceURI,
		SourceCode:    sourceCode,
		SourceDisplay: sourceCode + " display",
		TargetSystem:  targetSystem,
		TargetCode:    targetCode,
		TargetDisplay: targetCode + " display",
		Tier:          models.TierDirect,
		Equivalence:   models.EquivalenceEquivalent,
		Signals:       models.SignalBreakdown{Lexical: 0.9, Aggregate: 0.8},
		SourceRelease: "2024.1",
		TargetRelease: "2024-01",
	}
}

// waitCtx returns a context that fails the test run rather than hanging
// forever if the database stops responding.
func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func getTestDB(t *testing.T) *testhelpers.TestDB {
	t.Helper()
	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	return tdb
}

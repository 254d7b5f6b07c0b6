package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/models"
	"github.com/ayubridge/mapping-engine/pkg/whoicd"
)

// ============================================================================
// Mock Implementations for Remote API Adapter Tests
// ============================================================================

type searchCall struct {
	query  string
	filter string
}

type mockICDSearchClient struct {
	// filtered and unfiltered map queries to canned results.
	filtered   map[string][]whoicd.Entity
	unfiltered map[string][]whoicd.Entity
	err        error

	calls []searchCall
}

func (m *mockICDSearchClient) SearchEntities(ctx context.Context, query string, limit int, chapterFilter string) ([]whoicd.Entity, error) {
	m.calls = append(m.calls, searchCall{query: query, filter: chapterFilter})
	if m.err != nil {
		return nil, m.err
	}
	if chapterFilter != "" {
		return m.filtered[query], nil
	}
	return m.unfiltered[query], nil
}

func tmEntity(code, title string) whoicd.Entity {
	return whoicd.Entity{TheCode: code, Title: whoicd.LangValue(title), Chapter: "26"}
}

func mmsEntity(code, title string) whoicd.Entity {
	return whoicd.Entity{TheCode: code, Title: whoicd.LangValue(title), Chapter: "01"}
}

func newRemoteAdapter(client ICDSearchClient, topK int) CandidateSearcher {
	return NewRemoteAPIAdapter(client, testTerminologyConfig(), topK, time.Second, zap.NewNop())
}

func TestRemoteAPIAdapter_TMCandidatesFirst(t *testing.T) {
	client := &mockICDSearchClient{
		filtered: map[string][]whoicd.Entity{
			"jvara": {tmEntity("SP00", "Fever pattern (TM2)")},
		},
		unfiltered: map[string][]whoicd.Entity{
			"fever": {mmsEntity("1C62", "Fever"), tmEntity("SP01", "Heat pattern (TM2)")},
		},
	}
	adapter := newRemoteAdapter(client, 10)

	term := &models.Term{Code: "AYU-050", Display: "Jvara"}
	candidates, err := adapter.Search(context.Background(), term, []string{"jvara", "fever"})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Traditional-medicine entities are emitted ahead of biomedical ones.
	assert.Equal(t, "SP00", candidates[0].Code)
	assert.Equal(t, "SP01", candidates[1].Code)
	assert.Equal(t, "1C62", candidates[2].Code)
	assert.Equal(t, testTM2URI, candidates[0].SystemURI)
	assert.Equal(t, testMMSURI, candidates[2].SystemURI)
	assert.Equal(t, models.SourceRemoteAPI, candidates[0].Source)
}

func TestRemoteAPIAdapter_UnfilteredRetryOnEmpty(t *testing.T) {
	client := &mockICDSearchClient{
		filtered: map[string][]whoicd.Entity{},
		unfiltered: map[string][]whoicd.Entity{
			"prameha": {mmsEntity("5A11", "Type 2 diabetes mellitus")},
		},
	}
	adapter := newRemoteAdapter(client, 10)

	term := &models.Term{Code: "AYU-051", Display: "Prameha"}
	candidates, err := adapter.Search(context.Background(), term, []string{"prameha"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "5A11", candidates[0].Code)

	// One filtered call, then the unfiltered retry.
	require.Len(t, client.calls, 2)
	assert.Equal(t, tmChapterFilter, client.calls[0].filter)
	assert.Equal(t, "", client.calls[1].filter)
}

func TestRemoteAPIAdapter_DeduplicatesAcrossQueries(t *testing.T) {
	client := &mockICDSearchClient{
		filtered: map[string][]whoicd.Entity{
			"kasa":  {tmEntity("SR10", "Cough pattern")},
			"cough": {tmEntity("SR10", "Cough pattern"), tmEntity("SR11", "Wheeze pattern")},
		},
	}
	adapter := newRemoteAdapter(client, 10)

	term := &models.Term{Code: "AYU-052", Display: "Kasa"}
	candidates, err := adapter.Search(context.Background(), term, []string{"kasa", "cough"})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "SR10", candidates[0].Code)
	assert.Equal(t, "SR11", candidates[1].Code)
}

func TestRemoteAPIAdapter_SkipsShortQueries(t *testing.T) {
	client := &mockICDSearchClient{}
	adapter := newRemoteAdapter(client, 10)

	term := &models.Term{Code: "AYU-053", Display: "Ab"}
	candidates, err := adapter.Search(context.Background(), term, []string{"ab", ""})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, client.calls)
}

func TestRemoteAPIAdapter_CapsAtTopK(t *testing.T) {
	client := &mockICDSearchClient{
		filtered: map[string][]whoicd.Entity{
			"query one": {tmEntity("A1", "a1"), tmEntity("A2", "a2"), mmsEntity("A3", "a3")},
			"query two": {tmEntity("B1", "b1")},
		},
	}
	adapter := newRemoteAdapter(client, 3)

	term := &models.Term{Code: "AYU-054", Display: "Query"}
	candidates, err := adapter.Search(context.Background(), term, []string{"query one", "query two"})
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
	// The cap was reached after the first query; the second is never issued.
	assert.Len(t, client.calls, 1)
}

func TestRemoteAPIAdapter_AllQueriesFailing(t *testing.T) {
	client := &mockICDSearchClient{err: errors.New("upstream unavailable")}
	adapter := newRemoteAdapter(client, 10)

	term := &models.Term{Code: "AYU-055", Display: "Jvara"}
	_, err := adapter.Search(context.Background(), term, []string{"jvara"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AYU-055")
}

func TestRemoteAPIAdapter_PartialFailureStillReturnsCandidates(t *testing.T) {
	failing := &mockICDSearchClient{
		filtered: map[string][]whoicd.Entity{
			"second": {tmEntity("SP00", "Fever pattern")},
		},
	}
	// First query errors, second succeeds.
	wrapped := &flakyClient{inner: failing, failFirst: true}
	adapter := newRemoteAdapter(wrapped, 10)

	term := &models.Term{Code: "AYU-056", Display: "Jvara"}
	candidates, err := adapter.Search(context.Background(), term, []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "SP00", candidates[0].Code)
}

type flakyClient struct {
	inner     ICDSearchClient
	failFirst bool
	calls     int
}

func (f *flakyClient) SearchEntities(ctx context.Context, query string, limit int, chapterFilter string) ([]whoicd.Entity, error) {
	f.calls++
	if f.failFirst && f.calls == 1 {
		return nil, errors.New("transient failure")
	}
	return f.inner.SearchEntities(ctx, query, limit, chapterFilter)
}

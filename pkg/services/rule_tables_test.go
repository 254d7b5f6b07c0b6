package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRuleTables(t *testing.T) {
	tables, err := LoadRuleTables()
	require.NoError(t, err)

	assert.NotEmpty(t, tables.DomainSynonyms)
	assert.NotEmpty(t, tables.SemanticBridges)
	assert.NotEmpty(t, tables.CategoryHints)

	// Key order accessors are sorted so iteration is deterministic.
	keys := tables.BridgeKeys()
	require.NotEmpty(t, keys)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
}

func TestRuleTables_ExpandDomainSynonyms(t *testing.T) {
	tables, err := LoadRuleTables()
	require.NoError(t, err)

	expanded := tables.ExpandDomainSynonyms("prameha vyadhi")
	assert.Contains(t, expanded, "diabetes")
	assert.Contains(t, expanded, "disease")

	// Containment works across word boundaries on the compacted seed.
	assert.Contains(t, tables.ExpandDomainSynonyms("vata dosha"), "wind dosha")

	assert.Empty(t, tables.ExpandDomainSynonyms("no traditional vocabulary here"))
}

func TestRuleTables_ExpandDomainSynonyms_Deterministic(t *testing.T) {
	tables, err := LoadRuleTables()
	require.NoError(t, err)

	first := tables.ExpandDomainSynonyms("kapha ama shotha")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, tables.ExpandDomainSynonyms("kapha ama shotha"))
	}
}

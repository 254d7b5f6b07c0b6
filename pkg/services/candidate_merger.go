package services

import (
	"sort"

	"github.com/ayubridge/mapping-engine/pkg/models"
)

// MergeCandidates combines per-source candidate pools into one bounded pool.
// Pools are concatenated in the order given (callers pass them in source
// priority order), duplicates on (system URI, code) keep the first
// occurrence, and when the merged pool exceeds maxCandidates the
// lowest-priority entries are dropped. Within one priority class arrival
// order is preserved.
func MergeCandidates(maxCandidates int, pools ...[]models.CandidateTarget) []models.CandidateTarget {
	type targetKey struct {
		system string
		code   string
	}

	var merged []models.CandidateTarget
	seen := map[targetKey]bool{}
	for _, pool := range pools {
		for _, candidate := range pool {
			key := targetKey{system: candidate.SystemURI, code: candidate.Code}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, candidate)
		}
	}

	if maxCandidates > 0 && len(merged) > maxCandidates {
		sort.SliceStable(merged, func(i, j int) bool {
			return models.SourcePriority(merged[i].Source) < models.SourcePriority(merged[j].Source)
		})
		merged = merged[:maxCandidates]
	}
	return merged
}

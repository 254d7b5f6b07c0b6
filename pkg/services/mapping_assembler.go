package services

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// MappingAssembler turns the classified candidates of one term into the
// mapping records a run persists: at most one record per target terminology,
// the best-classified candidate winning each family, plus a single
// unmappable placeholder when nothing survives classification.
type MappingAssembler struct {
	terminology *config.TerminologyConfig
}

func NewMappingAssembler(terminology *config.TerminologyConfig) *MappingAssembler {
	return &MappingAssembler{terminology: terminology}
}

// Assemble selects the winning candidate per target system and builds the
// records for one term. Candidates classified unmappable never become
// mappings; a term where every candidate (or no candidate at all) landed
// there yields one placeholder record with an empty target code.
func (a *MappingAssembler) Assemble(runID uuid.UUID, term *models.Term, candidates []models.MappingCandidate) []*models.MappingRecord {
	SortCandidates(candidates)

	bestPerSystem := map[string]models.MappingCandidate{}
	var systems []string
	for _, candidate := range candidates {
		if candidate.Tier == models.TierUnmappable {
			continue
		}
		system := candidate.Target.SystemURI
		if _, taken := bestPerSystem[system]; taken {
			continue
		}
		bestPerSystem[system] = candidate
		systems = append(systems, system)
	}

	if len(systems) == 0 {
		return []*models.MappingRecord{a.unmappableRecord(runID, term)}
	}

	sort.Strings(systems)
	records := make([]*models.MappingRecord, 0, len(systems))
	for _, system := range systems {
		candidate := bestPerSystem[system]
		records = append(records, &models.MappingRecord{
			RunID:         runID,
			SourceSystem:  a.terminology.SourceSystemURI,
			SourceCode:    term.Code,
			SourceDisplay: term.Display,
			TargetSystem:  system,
			TargetCode:    candidate.Target.Code,
			TargetDisplay: candidate.Target.Display,
			Tier:          candidate.Tier,
			Equivalence:   candidate.Equivalence,
			Signals:       candidate.Signals,
			SourceRelease: a.terminology.SourceRelease,
			TargetRelease: a.terminology.TargetRelease,
			Active:        true,
		})
	}
	return records
}

// unmappableRecord is the placeholder written when a term maps nowhere. It
// is keyed to the biomedical system so the term still owns exactly one
// active record there and a later successful run supersedes it.
func (a *MappingAssembler) unmappableRecord(runID uuid.UUID, term *models.Term) *models.MappingRecord {
	return &models.MappingRecord{
		RunID:         runID,
		SourceSystem:  a.terminology.SourceSystemURI,
		SourceCode:    term.Code,
		SourceDisplay: term.Display,
		TargetSystem:  a.terminology.MMSSystemURI,
		Tier:          models.TierUnmappable,
		Equivalence:   models.EquivalenceUnmatched,
		SourceRelease: a.terminology.SourceRelease,
		TargetRelease: a.terminology.TargetRelease,
		Active:        true,
	}
}

// GroupRecords buckets records by (source system, target system) and orders
// both the groups and their members deterministically.
func GroupRecords(records []*models.MappingRecord) []models.TranslationGroup {
	type groupKey struct {
		source string
		target string
	}

	buckets := map[groupKey][]*models.MappingRecord{}
	var keys []groupKey
	for _, record := range records {
		key := groupKey{source: record.SourceSystem, target: record.TargetSystem}
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], record)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].target < keys[j].target
	})

	groups := make([]models.TranslationGroup, 0, len(keys))
	for _, key := range keys {
		members := buckets[key]
		sort.Slice(members, func(i, j int) bool {
			if members[i].SourceCode != members[j].SourceCode {
				return members[i].SourceCode < members[j].SourceCode
			}
			return members[i].TargetCode < members[j].TargetCode
		})
		groups = append(groups, models.TranslationGroup{
			SourceSystem: key.source,
			TargetSystem: key.target,
			Records:      members,
		})
	}
	return groups
}

package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ayubridge/mapping-engine/pkg/models"
)

const (
	// definitionSeedLength caps how much of the free-text definition is
	// used as a search seed.
	definitionSeedLength = 80
	// maxSynonymSeeds caps how many synonyms contribute seeds.
	maxSynonymSeeds = 5
	// minQueryLength drops search strings too short to be selective.
	minQueryLength = 3
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Normalizer turns a source term into an ordered, deduplicated sequence of
// normalized search strings. Pure function of the term and the static rule
// tables; no side effects.
type Normalizer struct {
	tables *RuleTables
}

// NewNormalizer creates a Normalizer over the given rule tables.
func NewNormalizer(tables *RuleTables) *Normalizer {
	return &Normalizer{tables: tables}
}

// SearchStrings produces the search vocabulary for a term. Seeds are the
// display text, the head of the definition, up to five synonyms, the
// category tags and the property values. Each seed is emitted in its
// original script and as an ASCII fallback; both forms stay searchable so
// cross-script candidates are not lost. Seeds matching the domain-synonym
// table pull in their clinical equivalents.
func (n *Normalizer) SearchStrings(term *models.Term) []string {
	seeds := make([]string, 0, 8+maxSynonymSeeds)
	seeds = append(seeds, term.Display)
	if term.Definition != "" {
		seeds = append(seeds, truncateRunes(term.Definition, definitionSeedLength))
	}
	synonyms := term.Synonyms
	if len(synonyms) > maxSynonymSeeds {
		synonyms = synonyms[:maxSynonymSeeds]
	}
	seeds = append(seeds, synonyms...)
	seeds = append(seeds, term.Categories...)
	// Property iteration must be ordered or the output would vary run to run.
	for _, key := range sortedMapKeys(term.Properties) {
		seeds = append(seeds, term.Properties[key])
	}

	bucket := make([]string, 0, len(seeds)*2)
	seen := make(map[string]bool)

	for _, raw := range seeds {
		// A seed that is not valid UTF-8 is dropped; normalization of the
		// remaining seeds continues and the term is never aborted.
		if !utf8.ValidString(raw) {
			continue
		}
		stripped := strings.TrimSpace(raw)
		if stripped == "" {
			continue
		}

		// Original script first, ASCII fallback second.
		variants := []string{stripped}
		if ascii := StripDiacritics(stripped); ascii != stripped && ascii != "" {
			variants = append(variants, ascii)
		}

		for _, variant := range variants {
			lowered := strings.ToLower(variant)
			if seen[lowered] {
				continue
			}
			seen[lowered] = true
			bucket = append(bucket, variant)
			bucket = append(bucket, n.tables.ExpandDomainSynonyms(NormalizeText(variant))...)
		}
	}

	// Constitutional-pattern terms get the canonical dosha phrases so local
	// and remote search can land on the right TM2 chapter entries.
	for key := range seen {
		if strings.Contains(key, "dosha") {
			bucket = append(bucket, "vata dosha", "pitta dosha", "kapha dosha")
			break
		}
	}
	bucket = append(bucket, "traditional medicine", "ayurveda")

	out := make([]string, 0, len(bucket))
	outSeen := make(map[string]bool)
	for _, value := range bucket {
		lowered := strings.ToLower(value)
		if outSeen[lowered] || len(lowered) < minQueryLength {
			continue
		}
		outSeen[lowered] = true
		out = append(out, value)
	}
	return out
}

// StripDiacritics decomposes the string (NFKD) and keeps only ASCII runes,
// dropping combining marks. "jvarāḥ" becomes "jvarah"; text in a non-Latin
// script collapses to empty rather than mojibake.
func StripDiacritics(value string) string {
	decomposed := norm.NFKD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeText lowercases, strips diacritics, replaces non-alphanumerics
// with spaces and collapses whitespace. This is the canonical form used by
// all lexical comparisons.
func NormalizeText(value string) string {
	value = StripDiacritics(strings.ToLower(value))
	value = nonAlphanumeric.ReplaceAllString(value, " ")
	return strings.Join(strings.Fields(value), " ")
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package services

import (
	"math"
	"strings"

	"github.com/jinzhu/inflection"
)

// englishStopwords are excluded from the definition-similarity vocabulary.
// Clinical definitions are short; without stopword removal the cosine is
// dominated by function words.
var englishStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"its": true, "may": true, "not": true, "of": true, "on": true,
	"or": true, "other": true, "such": true, "that": true, "the": true,
	"their": true, "this": true, "to": true, "was": true, "which": true,
	"with": true,
}

// contentTokens normalizes text, drops stopwords and single characters, and
// singularizes each token so plural variants of the same clinical noun
// collide.
func contentTokens(text string) []string {
	fields := strings.Fields(NormalizeText(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 || englishStopwords[field] {
			continue
		}
		tokens = append(tokens, inflection.Singular(field))
	}
	return tokens
}

// tfidfCosine scores how similar two free-text definitions are, as the
// cosine between their TF-IDF vectors over the two-document vocabulary.
// Smoothed IDF keeps shared terms contributing instead of zeroing out.
func tfidfCosine(a, b string) float64 {
	tokensA := contentTokens(a)
	tokensB := contentTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	countsA := termCounts(tokensA)
	countsB := termCounts(tokensB)

	var dot, normA, normB float64
	idf := func(term string) float64 {
		df := 0.0
		if countsA[term] > 0 {
			df++
		}
		if countsB[term] > 0 {
			df++
		}
		return math.Log(3.0/(1.0+df)) + 1.0
	}

	for term, tfA := range countsA {
		weightA := float64(tfA) * idf(term)
		normA += weightA * weightA
		if tfB, ok := countsB[term]; ok {
			dot += weightA * float64(tfB) * idf(term)
		}
	}
	for term, tfB := range countsB {
		weightB := float64(tfB) * idf(term)
		normB += weightB * weightB
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

// tokenJaccard is the Jaccard index over singularized content tokens.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(contentTokens(a))
	setB := tokenSet(contentTokens(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		set[token] = true
	}
	return set
}

// bigramDice is the Sørensen–Dice coefficient over character bigrams of the
// space-compacted normalized strings. It tolerates the transliteration
// spelling drift common in traditional-medicine term displays.
func bigramDice(a, b string) float64 {
	bigramsA := charBigrams(a)
	bigramsB := charBigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		if strings.TrimSpace(a) != "" && NormalizeText(a) == NormalizeText(b) {
			return 1
		}
		return 0
	}

	counts := make(map[string]int, len(bigramsA))
	for _, bg := range bigramsA {
		counts[bg]++
	}
	overlap := 0
	for _, bg := range bigramsB {
		if counts[bg] > 0 {
			counts[bg]--
			overlap++
		}
	}
	return 2.0 * float64(overlap) / float64(len(bigramsA)+len(bigramsB))
}

func charBigrams(text string) []string {
	compact := []rune(strings.ReplaceAll(NormalizeText(text), " ", ""))
	if len(compact) < 2 {
		return nil
	}
	bigrams := make([]string, 0, len(compact)-1)
	for i := 0; i+1 < len(compact); i++ {
		bigrams = append(bigrams, string(compact[i:i+2]))
	}
	return bigrams
}

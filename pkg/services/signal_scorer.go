package services

import (
	"strings"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// SignalScorer computes the five similarity signals and their weighted
// aggregate for one (source term, candidate target) pair. Scoring is pure:
// all inputs including the validation snapshot are passed in, so the same
// pair always scores identically within a run.
type SignalScorer struct {
	cfg         *config.MappingConfig
	terminology *config.TerminologyConfig
	tables      *RuleTables
}

func NewSignalScorer(cfg *config.MappingConfig, terminology *config.TerminologyConfig, tables *RuleTables) *SignalScorer {
	return &SignalScorer{cfg: cfg, terminology: terminology, tables: tables}
}

// Score produces the full signal breakdown. validation maps target codes to
// the folded reviewer score for this source term; absent codes score zero.
func (s *SignalScorer) Score(term *models.Term, target models.CandidateTarget, validation map[string]float64) models.SignalBreakdown {
	breakdown := models.SignalBreakdown{
		Lexical:    s.lexicalSignal(term, target),
		Definition: tfidfCosine(term.Definition, target.Definition),
		Synonym:    s.synonymSignal(term, target),
		Category:   s.categorySignal(term, target),
		Validation: clamp01(validation[target.Code]),
	}

	aggregate := s.cfg.LexicalWeight*breakdown.Lexical +
		s.cfg.DefinitionWeight*breakdown.Definition +
		s.cfg.SynonymWeight*breakdown.Synonym +
		s.cfg.CategoryWeight*breakdown.Category +
		s.cfg.ValidationWeight*breakdown.Validation

	// A strong synonym match overrides a noisy or missing definition: terms
	// whose clinical equivalent is only reachable through the synonym table
	// would otherwise never clear the tier thresholds.
	if breakdown.Synonym >= s.cfg.SynonymBoostTrigger && aggregate < s.cfg.BoostedAggregate {
		aggregate = s.cfg.BoostedAggregate
	}

	breakdown.Aggregate = clamp01(aggregate)
	return breakdown
}

// lexicalSignal averages token-set Jaccard and character-bigram Dice over
// the display forms. Jaccard rewards shared clinical vocabulary, the bigram
// Dice tolerates transliteration spelling drift.
func (s *SignalScorer) lexicalSignal(term *models.Term, target models.CandidateTarget) float64 {
	if term.Display == "" || target.Display == "" {
		return 0
	}
	return (tokenJaccard(term.Display, target.Display) + bigramDice(term.Display, target.Display)) / 2
}

// synonymSignal is the best similarity between any synonym of the source
// term (declared synonyms plus domain-table expansions of the display) and
// the candidate display. Traditional-medicine candidates get a calibrated
// bonus because TM2 displays reuse the source vocabulary far more often
// than biomedical ones.
func (s *SignalScorer) synonymSignal(term *models.Term, target models.CandidateTarget) float64 {
	if target.Display == "" {
		return 0
	}

	synonyms := append([]string{}, term.Synonyms...)
	synonyms = append(synonyms, s.tables.ExpandDomainSynonyms(NormalizeText(term.Display))...)
	if len(synonyms) == 0 {
		return 0
	}

	best := 0.0
	for _, synonym := range synonyms {
		if score := bigramDice(synonym, target.Display); score > best {
			best = score
		}
	}
	if target.SystemURI == s.terminology.TM2SystemURI {
		best *= s.cfg.TM2SynonymBonus
	}
	return clamp01(best)
}

// categorySignal scores discipline agreement. A term category tag whose
// hint vocabulary appears in the candidate's display or chapter metadata is
// a full match; otherwise the score is the fraction of hint disciplines
// whose vocabulary appears on both sides.
func (s *SignalScorer) categorySignal(term *models.Term, target models.CandidateTarget) float64 {
	candidateText := NormalizeText(target.Display + " " + target.Chapter)
	if candidateText == "" {
		return 0
	}

	for _, category := range term.Categories {
		hints, ok := s.tables.CategoryHints[strings.ToLower(strings.TrimSpace(category))]
		if !ok {
			continue
		}
		if containsAny(candidateText, hints) {
			return 1
		}
	}

	termText := NormalizeText(term.Display + " " + term.Definition)
	disciplines := s.tables.HintDisciplines()
	if len(disciplines) == 0 {
		return 0
	}
	matched := 0
	for _, discipline := range disciplines {
		hints := s.tables.CategoryHints[discipline]
		if containsAny(termText, hints) && containsAny(candidateText, hints) {
			matched++
		}
	}
	return float64(matched) / float64(len(disciplines))
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

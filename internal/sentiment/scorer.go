// Package sentiment turns social posts into lexical sentiment scores and
// aggregates them into batch and per-day summaries.
package sentiment

import (
	"strings"

	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/types"
)

type termGroup struct {
	name   string
	weight float64
	terms  []string
}

// Scorer is a pure lexical scorer. Each lexicon group adds its weight once
// when the lower-cased text contains any of its terms; groups are
// independent, so a text can match several and net to a partial score.
type Scorer struct {
	groups            []termGroup
	positiveThreshold float64
	negativeThreshold float64
}

func NewScorer(lexicon []store.LexiconGroup, positiveThreshold, negativeThreshold float64) *Scorer {
	groups := make([]termGroup, 0, len(lexicon))
	for _, g := range lexicon {
		terms := make([]string, 0, len(g.Terms))
		for _, t := range g.Terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				terms = append(terms, t)
			}
		}
		groups = append(groups, termGroup{name: g.Name, weight: g.Weight, terms: terms})
	}
	return &Scorer{
		groups:            groups,
		positiveThreshold: positiveThreshold,
		negativeThreshold: negativeThreshold,
	}
}

// NewScorerFromConfig builds a scorer from the sentiment section of cfg.
func NewScorerFromConfig(cfg *store.Config) *Scorer {
	return NewScorer(cfg.Sentiment.Lexicon, cfg.Sentiment.PositiveThreshold, cfg.Sentiment.NegativeThreshold)
}

// DefaultScorer uses the built-in lexicon and ±0.2 thresholds.
func DefaultScorer() *Scorer {
	return NewScorer(store.DefaultLexicon(), 0.2, -0.2)
}

// Score returns a value in [-1, 1] and its label.
func (s *Scorer) Score(text string) (float64, types.Label) {
	lower := strings.ToLower(text)
	score := 0.0
	for _, g := range s.groups {
		if containsAny(lower, g.terms) {
			score += g.weight
		}
	}
	score = clamp(score, -1, 1)
	return score, s.Label(score)
}

// Label maps a score to a class: strictly above the positive threshold is
// positive, strictly below the negative threshold is negative.
func (s *Scorer) Label(score float64) types.Label {
	switch {
	case score > s.positiveThreshold:
		return types.LabelPositive
	case score < s.negativeThreshold:
		return types.LabelNegative
	default:
		return types.LabelNeutral
	}
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package triage

import (
	"golang.org/x/sync/errgroup"

	"github.com/symcheck/symcheck/internal/platform/fuzzy"
)

const (
	// MatchesPerToken is how many best-scoring corpus entries a token keeps.
	MatchesPerToken = 3
	// MinMatchScore is the lowest score a kept entry may have.
	MinMatchScore = 60.0
)

// Matcher scores normalized tokens against a corpus snapshot.
type Matcher struct {
	scorer  fuzzy.Scorer
	workers int
}

// NewMatcher returns a Matcher using scorer (IndelRatio when nil). With
// workers > 1 tokens are scored concurrently; output order is unaffected.
func NewMatcher(scorer fuzzy.Scorer, workers int) *Matcher {
	if scorer == nil {
		scorer = fuzzy.IndelRatio
	}
	if workers < 1 {
		workers = 1
	}
	return &Matcher{scorer: scorer, workers: workers}
}

// Match returns, for each token in order, up to MatchesPerToken entries
// scoring at least MinMatchScore, best first.
func (m *Matcher) Match(corpus *Corpus, tokens []string) [][]Match {
	out := make([][]Match, len(tokens))
	if m.workers == 1 || len(tokens) < 2 {
		for i, tok := range tokens {
			out[i] = m.matchToken(corpus.Entries(), tok)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, tok := range tokens {
		i, tok := i, tok
		g.Go(func() error {
			out[i] = m.matchToken(corpus.Entries(), tok)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (m *Matcher) matchToken(entries []CorpusEntry, token string) []Match {
	best := make([]Match, 0, MatchesPerToken+1)
	for _, e := range entries {
		score := clampScore(m.scorer(token, e.SymptomText))
		if len(best) == MatchesPerToken && score <= best[len(best)-1].Score {
			continue
		}
		// Insert after every entry with an equal or higher score so ties
		// keep corpus order.
		pos := len(best)
		for pos > 0 && best[pos-1].Score < score {
			pos--
		}
		best = append(best, Match{})
		copy(best[pos+1:], best[pos:])
		best[pos] = Match{Entry: e, Score: score}
		if len(best) > MatchesPerToken {
			best = best[:MatchesPerToken]
		}
	}

	kept := best[:0]
	for _, match := range best {
		if match.Score >= MinMatchScore {
			kept = append(kept, match)
		}
	}
	return kept
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	default:
		return s
	}
}

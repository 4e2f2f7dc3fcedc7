package triage

import "sort"

// MaxRankedConditions caps the ranked condition list.
const MaxRankedConditions = 5

// RankConditions adds every retained match score to the condition of each
// corpus entry sharing the match's symptom text, then returns the top limit
// conditions by total. Equal totals keep the order in which the conditions
// were first seen. A nil corpus credits only the matched entry itself.
func RankConditions(corpus *Corpus, matches [][]Match, limit int) []RankedCondition {
	totals := map[string]float64{}
	var order []string
	for _, tokenMatches := range matches {
		for _, m := range tokenMatches {
			targets := []CorpusEntry{m.Entry}
			if corpus != nil {
				targets = corpus.WithSymptom(m.Entry.SymptomText)
			}
			for _, e := range targets {
				name := e.ConditionName
				if _, seen := totals[name]; !seen {
					order = append(order, name)
				}
				totals[name] += m.Score
			}
		}
	}

	ranked := make([]RankedCondition, 0, len(order))
	for _, name := range order {
		ranked = append(ranked, RankedCondition{Name: name, Score: totals[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func conditionNames(ranked []RankedCondition) []string {
	names := make([]string, len(ranked))
	for i, rc := range ranked {
		names[i] = rc.Name
	}
	return names
}

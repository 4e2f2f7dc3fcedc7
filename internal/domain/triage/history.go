package triage

import (
	"strings"
	"time"
)

// BuildHistoryRecord summarizes a search that ranked at least one condition.
//
// RecommendedMedicine is the first medicine of the last recommendation in
// rank order, not the top-ranked one.
func BuildHistoryRecord(q SearchQuery, tokens []string, ranked []RankedCondition, recs []ConditionRecommendation, risk int) *HistoryRecord {
	medicine := NoRecommendedMedicine
	if n := len(recs); n > 0 && len(recs[n-1].Medicines) > 0 {
		medicine = recs[n-1].Medicines[0]
	}
	return &HistoryRecord{
		RequesterID:         q.RequesterID,
		NormalizedSymptoms:  strings.Join(tokens, ", "),
		Severity:            q.Severity,
		DurationDays:        q.DurationDays,
		RiskScore:           risk,
		MatchedConditions:   strings.Join(conditionNames(ranked), ", "),
		RecommendedMedicine: medicine,
		CreatedAt:           time.Now().UTC(),
	}
}

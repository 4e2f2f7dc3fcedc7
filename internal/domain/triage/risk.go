package triage

// RiskScore computes durationDays × severeMatchCount × multiplier.
//
// severeMatchCount is the number of ranked conditions when the query
// severity is exactly "Severe" and zero otherwise, so any other severity
// scores 0 regardless of duration or matches.
func RiskScore(q SearchQuery, rankedCount int) int {
	severeMatchCount := 0
	if q.Severity == SeveritySevere {
		severeMatchCount = rankedCount
	}
	return q.DurationDays * severeMatchCount * severityMultiplier(q.Severity)
}

func severityMultiplier(severity string) int {
	switch severity {
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	default:
		return 1
	}
}

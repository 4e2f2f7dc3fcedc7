package triage

import "strings"

// NormalizeSymptoms splits comma-delimited input into trimmed, lowercased
// tokens. Empty segments are dropped; order and duplicates are kept.
func NormalizeSymptoms(raw string) []string {
	tokens := []string{}
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

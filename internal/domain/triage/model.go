package triage

import (
	"errors"
	"time"
)

const (
	SeverityMild     = "Mild"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
)

const (
	// DefaultPrecautions is used when a condition has no precaution link.
	DefaultPrecautions = "No precautions available"
	// NoRecommendedMedicine fills HistoryRecord.RecommendedMedicine when the
	// selected recommendation carries no medicines.
	NoRecommendedMedicine = "N/A"
)

// ErrInvalidInput marks errors caused by the caller's input rather than the
// store.
var ErrInvalidInput = errors.New("invalid input")

var validSeverities = map[string]bool{
	SeverityMild: true, SeverityModerate: true, SeveritySevere: true,
}

// CorpusEntry associates one symptom text with one condition.
type CorpusEntry struct {
	ID            int64  `json:"id" yaml:"id"`
	SymptomText   string `json:"symptom_text" yaml:"symptom"`
	ConditionName string `json:"condition" yaml:"condition"`
}

type MedicineRecord struct {
	ID          int64   `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Composition string  `json:"composition" yaml:"composition"`
	Category    *string `json:"category,omitempty" yaml:"category"`
	SideEffects *string `json:"side_effects,omitempty" yaml:"side_effects"`
}

type ConditionMedicineLink struct {
	ID                   int64  `json:"id" yaml:"id"`
	ConditionName        string `json:"condition" yaml:"condition"`
	RecommendedMedicines string `json:"recommended_medicines" yaml:"medicines"`
}

type ConditionPrecautionLink struct {
	ID            int64  `json:"id" yaml:"id"`
	ConditionName string `json:"condition" yaml:"condition"`
	Precautions   string `json:"precautions" yaml:"precautions"`
}

// PurchaseEvent is append-only.
type PurchaseEvent struct {
	ID            int64     `json:"id" yaml:"id"`
	UserID        string    `json:"user_id" yaml:"user_id"`
	ConditionName string    `json:"condition" yaml:"condition"`
	MedicineName  string    `json:"medicine" yaml:"medicine"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
}

// PurchaseFrequency is one (condition, medicine) purchase count.
type PurchaseFrequency struct {
	ConditionName string `json:"condition"`
	MedicineName  string `json:"medicine"`
	Count         int    `json:"freq"`
}

type SearchQuery struct {
	RawSymptoms  string `json:"input_symptoms"`
	Severity     string `json:"severity"`
	DurationDays int    `json:"duration_days"`
	RequesterID  string `json:"requester_id,omitempty"`
}

// Match is one corpus entry retained for a token, with its fuzzy score.
type Match struct {
	Entry CorpusEntry `json:"entry"`
	Score float64     `json:"score"`
}

// RankedCondition is a condition with its aggregated match score.
type RankedCondition struct {
	Name  string  `json:"condition"`
	Score float64 `json:"score"`
}

type ConditionRecommendation struct {
	ConditionName string   `json:"condition"`
	Medicines     []string `json:"recommended_medicines"`
	Precautions   string   `json:"precautions"`
}

type SearchResult struct {
	Matched          []RankedCondition         `json:"matched_conditions"`
	RankedConditions []ConditionRecommendation `json:"results"`
	RiskScore        int                       `json:"risk_score"`
	Collaborative    map[string][]string       `json:"collaborative"`
	Similar          map[string][]string       `json:"similar_suggestions"`
}

// HistoryRecord summarizes one completed search. Never updated.
type HistoryRecord struct {
	ID                  int64     `json:"id"`
	RequesterID         string    `json:"requester_id"`
	NormalizedSymptoms  string    `json:"input_symptoms"`
	Severity            string    `json:"severity"`
	DurationDays        int       `json:"duration_days"`
	RiskScore           int       `json:"risk_score"`
	MatchedConditions   string    `json:"conditions_found"`
	RecommendedMedicine string    `json:"recommended_medicine"`
	CreatedAt           time.Time `json:"timestamp"`
}

// emptyResult is returned when no condition survives ranking.
func emptyResult(risk int) *SearchResult {
	return &SearchResult{
		Matched:          []RankedCondition{},
		RankedConditions: []ConditionRecommendation{},
		RiskScore:        risk,
		Collaborative:    map[string][]string{},
		Similar:          map[string][]string{},
	}
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}

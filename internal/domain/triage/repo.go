package triage

import (
	"context"
)

// Store is the read/write contract the search pipeline consumes.
// Lookups that find nothing return a nil record and a nil error.
// When several rows qualify, the one with the lowest ID is returned.
type Store interface {
	ListCorpusEntries(ctx context.Context) ([]CorpusEntry, error)
	FindMedicineLink(ctx context.Context, condition string) (*ConditionMedicineLink, error)
	FindPrecautionLink(ctx context.Context, condition string) (*ConditionPrecautionLink, error)
	// FindPurchasesByCondition returns purchases in insertion order.
	FindPurchasesByCondition(ctx context.Context, condition string) ([]PurchaseEvent, error)
	FindMedicineByName(ctx context.Context, name string) (*MedicineRecord, error)
	FindMedicinesByCategory(ctx context.Context, category, excludeName string, limit int) ([]string, error)
	// FindMedicinesByCompositionSubstring matches token anywhere in the
	// composition text, ignoring case.
	FindMedicinesByCompositionSubstring(ctx context.Context, token, excludeName string, limit int) ([]string, error)
	InsertHistory(ctx context.Context, h *HistoryRecord) error
	InsertPurchase(ctx context.Context, p *PurchaseEvent) error

	// ListHistoryByRequester returns newest records first and the total count.
	ListHistoryByRequester(ctx context.Context, requesterID string, limit, offset int) ([]HistoryRecord, int, error)
	// PurchaseFrequencies groups purchases by (condition, medicine), ordered
	// by count descending, then by first purchase.
	PurchaseFrequencies(ctx context.Context) ([]PurchaseFrequency, error)
}

package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	// CollaborativeLimit is how many popular medicines are suggested per condition.
	CollaborativeLimit = 3
	// SimilarLimit caps both each similarity lookup and the merged list.
	SimilarLimit = 5
)

// Assembler joins ranked conditions with medicine, precaution, purchase and
// catalog data from the store.
type Assembler struct {
	store Store
}

func NewAssembler(store Store) *Assembler {
	return &Assembler{store: store}
}

// Recommendations returns one recommendation per ranked condition, in rank order.
func (a *Assembler) Recommendations(ctx context.Context, ranked []RankedCondition) ([]ConditionRecommendation, error) {
	recs := make([]ConditionRecommendation, 0, len(ranked))
	for _, rc := range ranked {
		rec := ConditionRecommendation{
			ConditionName: rc.Name,
			Medicines:     []string{},
			Precautions:   DefaultPrecautions,
		}

		link, err := a.store.FindMedicineLink(ctx, rc.Name)
		if err != nil {
			return nil, fmt.Errorf("find medicine link for %q: %w", rc.Name, err)
		}
		if link != nil {
			rec.Medicines = splitMedicineList(link.RecommendedMedicines)
		}

		prec, err := a.store.FindPrecautionLink(ctx, rc.Name)
		if err != nil {
			return nil, fmt.Errorf("find precaution link for %q: %w", rc.Name, err)
		}
		if prec != nil {
			rec.Precautions = prec.Precautions
		}

		recs = append(recs, rec)
	}
	return recs, nil
}

// Collaborative maps each ranked condition to its most purchased medicines.
func (a *Assembler) Collaborative(ctx context.Context, ranked []RankedCondition) (map[string][]string, error) {
	out := make(map[string][]string, len(ranked))
	for _, rc := range ranked {
		purchases, err := a.store.FindPurchasesByCondition(ctx, rc.Name)
		if err != nil {
			return nil, fmt.Errorf("find purchases for %q: %w", rc.Name, err)
		}
		out[rc.Name] = topPurchased(purchases, CollaborativeLimit)
	}
	return out, nil
}

// Similar maps the first medicine of every non-empty recommendation to
// alternates sharing its category or the first token of its composition.
func (a *Assembler) Similar(ctx context.Context, recs []ConditionRecommendation) (map[string][]string, error) {
	out := map[string][]string{}
	for _, rec := range recs {
		if len(rec.Medicines) == 0 {
			continue
		}
		primary := rec.Medicines[0]
		similar, err := a.similarTo(ctx, primary)
		if err != nil {
			return nil, err
		}
		out[primary] = similar
	}
	return out, nil
}

func (a *Assembler) similarTo(ctx context.Context, primary string) ([]string, error) {
	med, err := a.store.FindMedicineByName(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("find medicine %q: %w", primary, err)
	}
	if med == nil {
		return []string{}, nil
	}

	var candidates []string
	if hasText(med.Category) {
		names, err := a.store.FindMedicinesByCategory(ctx, *med.Category, primary, SimilarLimit)
		if err != nil {
			return nil, fmt.Errorf("find medicines in category %q: %w", *med.Category, err)
		}
		candidates = append(candidates, names...)
	}
	if fields := strings.Fields(med.Composition); len(fields) > 0 {
		names, err := a.store.FindMedicinesByCompositionSubstring(ctx, fields[0], primary, SimilarLimit)
		if err != nil {
			return nil, fmt.Errorf("find medicines containing %q: %w", fields[0], err)
		}
		candidates = append(candidates, names...)
	}
	return dedupeLimit(candidates, primary, SimilarLimit), nil
}

// splitMedicineList splits a comma-delimited medicine list, keeping the
// declared order. Duplicates are not removed.
func splitMedicineList(s string) []string {
	names := []string{}
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// topPurchased counts purchases per medicine and returns the n most
// frequent; equal counts keep first-purchase order.
func topPurchased(purchases []PurchaseEvent, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, p := range purchases {
		if _, seen := counts[p.MedicineName]; !seen {
			order = append(order, p.MedicineName)
		}
		counts[p.MedicineName]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// dedupeLimit keeps the first occurrence of each name, never the excluded
// one, up to limit names.
func dedupeLimit(names []string, exclude string, limit int) []string {
	seen := map[string]bool{exclude: true}
	out := []string{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == limit {
			break
		}
	}
	return out
}

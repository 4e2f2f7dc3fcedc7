package triage

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
)

var errBroken = errors.New("store unavailable")

func loadSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	f, err := os.Open("testdata/snapshot.yaml")
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()
	snap, err := DecodeSnapshot(f)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.Seed(loadSnapshot(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

// brokenStore fails the named operation and delegates the rest.
type brokenStore struct {
	Store
	fail string
}

func (b *brokenStore) ListCorpusEntries(ctx context.Context) ([]CorpusEntry, error) {
	if b.fail == "corpus" {
		return nil, errBroken
	}
	return b.Store.ListCorpusEntries(ctx)
}

func (b *brokenStore) FindPurchasesByCondition(ctx context.Context, condition string) ([]PurchaseEvent, error) {
	if b.fail == "purchases" {
		return nil, errBroken
	}
	return b.Store.FindPurchasesByCondition(ctx, condition)
}

func (b *brokenStore) FindMedicineByName(ctx context.Context, name string) (*MedicineRecord, error) {
	if b.fail == "medicine" {
		return nil, errBroken
	}
	return b.Store.FindMedicineByName(ctx, name)
}

func (b *brokenStore) InsertHistory(ctx context.Context, h *HistoryRecord) error {
	if b.fail == "history" {
		return errBroken
	}
	return b.Store.InsertHistory(ctx, h)
}

func (b *brokenStore) PurchaseFrequencies(ctx context.Context) ([]PurchaseFrequency, error) {
	if b.fail == "frequencies" {
		return nil, errBroken
	}
	return b.Store.PurchaseFrequencies(ctx)
}

// testStoreContract checks behaviour every Store implementation shares.
// s must be seeded from testdata/snapshot.yaml.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("corpus in id order", func(t *testing.T) {
		items, err := s.ListCorpusEntries(ctx)
		if err != nil {
			t.Fatalf("ListCorpusEntries: %v", err)
		}
		if len(items) != 4 {
			t.Fatalf("expected 4 entries, got %d", len(items))
		}
		if items[0].SymptomText != "fever" || items[3].ConditionName != "Arthritis" {
			t.Errorf("unexpected corpus order: %+v", items)
		}
		for i := 1; i < len(items); i++ {
			if items[i].ID <= items[i-1].ID {
				t.Errorf("corpus not in id order: %+v", items)
			}
		}
	})

	t.Run("links pick lowest id", func(t *testing.T) {
		ml, err := s.FindMedicineLink(ctx, "Flu")
		if err != nil || ml == nil {
			t.Fatalf("FindMedicineLink: %v, %v", ml, err)
		}
		if ml.RecommendedMedicines != "Ibuprofen-X, Paracetamol-P" {
			t.Errorf("expected first Flu link, got %q", ml.RecommendedMedicines)
		}
		pl, err := s.FindPrecautionLink(ctx, "Flu")
		if err != nil || pl == nil {
			t.Fatalf("FindPrecautionLink: %v, %v", pl, err)
		}
		if pl.Precautions != "Rest, fluids" {
			t.Errorf("expected first Flu precautions, got %q", pl.Precautions)
		}
	})

	t.Run("absent lookups return nil", func(t *testing.T) {
		ml, err := s.FindMedicineLink(ctx, "Unknown")
		if err != nil || ml != nil {
			t.Errorf("expected nil link, got %+v, %v", ml, err)
		}
		pl, err := s.FindPrecautionLink(ctx, "Migraine")
		if err != nil || pl != nil {
			t.Errorf("expected nil precautions, got %+v, %v", pl, err)
		}
		m, err := s.FindMedicineByName(ctx, "Oseltamivir")
		if err != nil || m != nil {
			t.Errorf("expected nil medicine, got %+v, %v", m, err)
		}
	})

	t.Run("medicine nullable fields", func(t *testing.T) {
		m, err := s.FindMedicineByName(ctx, "Ibuprofen-X")
		if err != nil || m == nil {
			t.Fatalf("FindMedicineByName: %v, %v", m, err)
		}
		if m.Category == nil || *m.Category != "Pain" || m.SideEffects == nil || *m.SideEffects != "Nausea" {
			t.Errorf("unexpected medicine %+v", m)
		}
		advil, err := s.FindMedicineByName(ctx, "Advil")
		if err != nil || advil == nil {
			t.Fatalf("FindMedicineByName(Advil): %v, %v", advil, err)
		}
		if advil.Category != nil || advil.SideEffects != nil {
			t.Errorf("expected nil category and side effects, got %+v", advil)
		}
	})

	t.Run("category and composition lookups", func(t *testing.T) {
		got, err := s.FindMedicinesByCategory(ctx, "Pain", "Ibuprofen-X", SimilarLimit)
		if err != nil {
			t.Fatalf("FindMedicinesByCategory: %v", err)
		}
		if want := []string{"Paracetamol-P", "Aspirin-P"}; !reflect.DeepEqual(got, want) {
			t.Errorf("category: expected %v, got %v", want, got)
		}

		got, err = s.FindMedicinesByCompositionSubstring(ctx, "Ibuprofen", "Ibuprofen-X", SimilarLimit)
		if err != nil {
			t.Fatalf("FindMedicinesByCompositionSubstring: %v", err)
		}
		if want := []string{"Brufen", "Advil", "Combiflam", "Nurofen"}; !reflect.DeepEqual(got, want) {
			t.Errorf("composition: expected %v, got %v", want, got)
		}

		got, err = s.FindMedicinesByCompositionSubstring(ctx, "IBUPROFEN", "", SimilarLimit)
		if err != nil {
			t.Fatalf("FindMedicinesByCompositionSubstring: %v", err)
		}
		if want := []string{"Ibuprofen-X", "Brufen", "Advil", "Combiflam", "Nurofen"}; !reflect.DeepEqual(got, want) {
			t.Errorf("case-insensitive composition: expected %v, got %v", want, got)
		}

		got, err = s.FindMedicinesByCompositionSubstring(ctx, "mg", "", 2)
		if err != nil {
			t.Fatalf("FindMedicinesByCompositionSubstring: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected limit 2, got %v", got)
		}
	})

	t.Run("purchases and frequencies", func(t *testing.T) {
		ps, err := s.FindPurchasesByCondition(ctx, "Flu")
		if err != nil {
			t.Fatalf("FindPurchasesByCondition: %v", err)
		}
		if len(ps) != 6 || ps[0].MedicineName != "Advil" || ps[5].MedicineName != "Combiflam" {
			t.Errorf("unexpected purchases %+v", ps)
		}

		p := &PurchaseEvent{UserID: "u9", ConditionName: "Migraine", MedicineName: "Aspirin-P"}
		if err := s.InsertPurchase(ctx, p); err != nil {
			t.Fatalf("InsertPurchase: %v", err)
		}
		if p.ID == 0 || p.Timestamp.IsZero() {
			t.Errorf("expected id and timestamp to be set, got %+v", p)
		}

		freqs, err := s.PurchaseFrequencies(ctx)
		if err != nil {
			t.Fatalf("PurchaseFrequencies: %v", err)
		}
		want := []PurchaseFrequency{
			{ConditionName: "Flu", MedicineName: "Brufen", Count: 2},
			{ConditionName: "Flu", MedicineName: "Ibuprofen-X", Count: 2},
			{ConditionName: "Migraine", MedicineName: "Aspirin-P", Count: 2},
			{ConditionName: "Flu", MedicineName: "Advil", Count: 1},
			{ConditionName: "Flu", MedicineName: "Combiflam", Count: 1},
		}
		if !reflect.DeepEqual(freqs, want) {
			t.Errorf("expected %+v, got %+v", want, freqs)
		}
	})

	t.Run("history paging", func(t *testing.T) {
		for i, symptoms := range []string{"fever", "cough", "headache"} {
			h := &HistoryRecord{
				RequesterID:         "alice",
				NormalizedSymptoms:  symptoms,
				Severity:            SeverityMild,
				DurationDays:        i,
				MatchedConditions:   "Flu",
				RecommendedMedicine: "Ibuprofen-X",
			}
			if err := s.InsertHistory(ctx, h); err != nil {
				t.Fatalf("InsertHistory: %v", err)
			}
			if h.ID == 0 {
				t.Error("expected history id to be set")
			}
		}
		if err := s.InsertHistory(ctx, &HistoryRecord{RequesterID: "bob", NormalizedSymptoms: "x", Severity: SeverityMild}); err != nil {
			t.Fatalf("InsertHistory: %v", err)
		}

		page, total, err := s.ListHistoryByRequester(ctx, "alice", 2, 0)
		if err != nil {
			t.Fatalf("ListHistoryByRequester: %v", err)
		}
		if total != 3 || len(page) != 2 {
			t.Fatalf("expected 2 of 3, got %d of %d", len(page), total)
		}
		if page[0].NormalizedSymptoms != "headache" || page[1].NormalizedSymptoms != "cough" {
			t.Errorf("expected newest first, got %+v", page)
		}

		page, _, err = s.ListHistoryByRequester(ctx, "alice", 2, 2)
		if err != nil {
			t.Fatalf("ListHistoryByRequester: %v", err)
		}
		if len(page) != 1 || page[0].NormalizedSymptoms != "fever" {
			t.Errorf("unexpected second page %+v", page)
		}

		page, total, err = s.ListHistoryByRequester(ctx, "nobody", 10, 0)
		if err != nil || total != 0 || page == nil || len(page) != 0 {
			t.Errorf("expected empty page, got %+v, %d, %v", page, total, err)
		}
	})
}

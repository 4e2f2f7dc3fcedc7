package triage

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestAssembler_Recommendations(t *testing.T) {
	a := NewAssembler(newTestStore(t))
	ranked := []RankedCondition{{Name: "Flu"}, {Name: "Migraine"}, {Name: "Arthritis"}, {Name: "Unlinked"}}

	recs, err := a.Recommendations(context.Background(), ranked)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	want := []ConditionRecommendation{
		{ConditionName: "Flu", Medicines: []string{"Ibuprofen-X", "Paracetamol-P"}, Precautions: "Rest, fluids"},
		{ConditionName: "Migraine", Medicines: []string{"Aspirin-P"}, Precautions: DefaultPrecautions},
		{ConditionName: "Arthritis", Medicines: []string{}, Precautions: DefaultPrecautions},
		{ConditionName: "Unlinked", Medicines: []string{}, Precautions: DefaultPrecautions},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("expected %+v, got %+v", want, recs)
	}
}

func TestAssembler_Collaborative(t *testing.T) {
	a := NewAssembler(newTestStore(t))
	got, err := a.Collaborative(context.Background(), []RankedCondition{{Name: "Flu"}, {Name: "Arthritis"}})
	if err != nil {
		t.Fatalf("Collaborative: %v", err)
	}
	want := map[string][]string{
		"Flu":       {"Brufen", "Ibuprofen-X", "Advil"},
		"Arthritis": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAssembler_SimilarCategoryFirst(t *testing.T) {
	a := NewAssembler(newTestStore(t))
	recs := []ConditionRecommendation{
		{ConditionName: "Flu", Medicines: []string{"Ibuprofen-X", "Paracetamol-P"}},
		{ConditionName: "Arthritis", Medicines: []string{}},
		{ConditionName: "Cold", Medicines: []string{"Unknown-Med"}},
	}
	got, err := a.Similar(context.Background(), recs)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	want := map[string][]string{
		"Ibuprofen-X": {"Paracetamol-P", "Aspirin-P", "Brufen", "Advil", "Combiflam"},
		"Unknown-Med": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAssembler_SimilarDeduplicates(t *testing.T) {
	// Combiflam shares no category with anything; its first composition
	// token "Paracetamol" matches Paracetamol-P only.
	a := NewAssembler(newTestStore(t))
	got, err := a.similarTo(context.Background(), "Combiflam")
	if err != nil {
		t.Fatalf("similarTo: %v", err)
	}
	if want := []string{"Paracetamol-P"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Brufen: category NSAID gives Nurofen, which the composition lookup
	// returns again.
	got, err = a.similarTo(context.Background(), "Brufen")
	if err != nil {
		t.Fatalf("similarTo: %v", err)
	}
	if want := []string{"Nurofen", "Ibuprofen-X", "Advil", "Combiflam"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAssembler_PropagatesStoreErrors(t *testing.T) {
	ranked := []RankedCondition{{Name: "Flu"}}

	a := NewAssembler(&brokenStore{Store: newTestStore(t), fail: "purchases"})
	if _, err := a.Collaborative(context.Background(), ranked); !errors.Is(err, errBroken) {
		t.Errorf("expected wrapped store error, got %v", err)
	}

	a = NewAssembler(&brokenStore{Store: newTestStore(t), fail: "medicine"})
	recs := []ConditionRecommendation{{ConditionName: "Flu", Medicines: []string{"Ibuprofen-X"}}}
	if _, err := a.Similar(context.Background(), recs); !errors.Is(err, errBroken) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestSplitMedicineList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"A, B", []string{"A", "B"}},
		{" A ,, B ,", []string{"A", "B"}},
		{"A, A", []string{"A", "A"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := splitMedicineList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitMedicineList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTopPurchased(t *testing.T) {
	purchases := []PurchaseEvent{
		{MedicineName: "C"}, {MedicineName: "A"}, {MedicineName: "B"},
		{MedicineName: "A"}, {MedicineName: "D"}, {MedicineName: "B"},
	}
	if got, want := topPurchased(purchases, 3), []string{"A", "B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := topPurchased(nil, 3); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestDedupeLimit(t *testing.T) {
	got := dedupeLimit([]string{"X", "A", "B", "A", "C", "D", "E", "F"}, "X", 5)
	if want := []string{"A", "B", "C", "D", "E"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

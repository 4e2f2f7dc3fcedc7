package triage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "symcheck.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	s := newTestSQLiteStore(t)
	if err := s.Seed(context.Background(), loadSnapshot(t)); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	testStoreContract(t, s)
}

func TestSQLiteStore_EmptyAndPing(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	empty, err := s.Empty(ctx)
	if err != nil || !empty {
		t.Fatalf("expected empty store, got %v, %v", empty, err)
	}
	if err := s.Seed(ctx, loadSnapshot(t)); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	empty, err = s.Empty(ctx)
	if err != nil || empty {
		t.Errorf("expected seeded store, got empty=%v, %v", empty, err)
	}
}

func TestSQLiteStore_SeedDuplicateMedicineRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	snap := &Snapshot{
		Corpus:    []CorpusEntry{{SymptomText: "fever", ConditionName: "Flu"}},
		Medicines: []MedicineRecord{{Name: "Advil"}, {Name: "Advil"}},
	}
	if err := s.Seed(ctx, snap); err == nil {
		t.Fatal("expected unique constraint error")
	}
	m, err := s.FindMedicineByName(ctx, "Advil")
	if err != nil || m != nil {
		t.Errorf("expected rollback to discard the first insert, got %+v, %v", m, err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "symcheck.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.InsertPurchase(ctx, &PurchaseEvent{UserID: "u1", ConditionName: "Flu", MedicineName: "Advil"}); err != nil {
		t.Fatalf("InsertPurchase: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ps, err := s.FindPurchasesByCondition(ctx, "Flu")
	if err != nil || len(ps) != 1 || ps[0].MedicineName != "Advil" {
		t.Errorf("expected persisted purchase, got %+v, %v", ps, err)
	}
}

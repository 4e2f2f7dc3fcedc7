package triage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is a complete store fixture, loadable from YAML.
type Snapshot struct {
	Corpus          []CorpusEntry             `yaml:"corpus"`
	Medicines       []MedicineRecord          `yaml:"medicines"`
	MedicineLinks   []ConditionMedicineLink   `yaml:"condition_medicines"`
	PrecautionLinks []ConditionPrecautionLink `yaml:"condition_precautions"`
	Purchases       []PurchaseEvent           `yaml:"purchases"`
}

// DecodeSnapshot parses a YAML store fixture.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// MemoryStore is a Store held entirely in memory. Rows are kept in ID order.
type MemoryStore struct {
	mu              sync.RWMutex
	nextID          int64
	corpus          []CorpusEntry
	medicines       []MedicineRecord
	medicineLinks   []ConditionMedicineLink
	precautionLinks []ConditionPrecautionLink
	purchases       []PurchaseEvent
	history         []HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadSnapshotFile reads a YAML store fixture from path.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// NewMemoryStoreFromFile returns a MemoryStore seeded from a YAML fixture.
func NewMemoryStoreFromFile(path string) (*MemoryStore, error) {
	snap, err := LoadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	s := NewMemoryStore()
	if err := s.Seed(snap); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) assignID(id int64) int64 {
	if id == 0 {
		s.nextID++
		return s.nextID
	}
	if id > s.nextID {
		s.nextID = id
	}
	return id
}

// Seed appends every row of snap. Rows without an ID get the next free one.
func (s *MemoryStore) Seed(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := map[string]bool{}
	for _, m := range s.medicines {
		names[m.Name] = true
	}
	for _, m := range snap.Medicines {
		if names[m.Name] {
			return fmt.Errorf("duplicate medicine name: %s", m.Name)
		}
		names[m.Name] = true
		m.ID = s.assignID(m.ID)
		s.medicines = append(s.medicines, m)
	}
	for _, e := range snap.Corpus {
		e.ID = s.assignID(e.ID)
		s.corpus = append(s.corpus, e)
	}
	for _, l := range snap.MedicineLinks {
		l.ID = s.assignID(l.ID)
		s.medicineLinks = append(s.medicineLinks, l)
	}
	for _, l := range snap.PrecautionLinks {
		l.ID = s.assignID(l.ID)
		s.precautionLinks = append(s.precautionLinks, l)
	}
	for _, p := range snap.Purchases {
		p.ID = s.assignID(p.ID)
		if p.Timestamp.IsZero() {
			p.Timestamp = time.Now().UTC()
		}
		s.purchases = append(s.purchases, p)
	}

	sort.SliceStable(s.corpus, func(i, j int) bool { return s.corpus[i].ID < s.corpus[j].ID })
	sort.SliceStable(s.medicines, func(i, j int) bool { return s.medicines[i].ID < s.medicines[j].ID })
	sort.SliceStable(s.medicineLinks, func(i, j int) bool { return s.medicineLinks[i].ID < s.medicineLinks[j].ID })
	sort.SliceStable(s.precautionLinks, func(i, j int) bool { return s.precautionLinks[i].ID < s.precautionLinks[j].ID })
	sort.SliceStable(s.purchases, func(i, j int) bool { return s.purchases[i].ID < s.purchases[j].ID })
	return nil
}

func (s *MemoryStore) ListCorpusEntries(_ context.Context) ([]CorpusEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CorpusEntry, len(s.corpus))
	copy(out, s.corpus)
	return out, nil
}

func (s *MemoryStore) FindMedicineLink(_ context.Context, condition string) (*ConditionMedicineLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.medicineLinks {
		if l.ConditionName == condition {
			link := l
			return &link, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindPrecautionLink(_ context.Context, condition string) (*ConditionPrecautionLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.precautionLinks {
		if l.ConditionName == condition {
			link := l
			return &link, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindPurchasesByCondition(_ context.Context, condition string) ([]PurchaseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PurchaseEvent
	for _, p := range s.purchases {
		if p.ConditionName == condition {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindMedicineByName(_ context.Context, name string) (*MedicineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.medicines {
		if m.Name == name {
			med := m
			return &med, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindMedicinesByCategory(_ context.Context, category, excludeName string, limit int) ([]string, error) {
	return s.findMedicines(limit, func(m MedicineRecord) bool {
		return m.Name != excludeName && m.Category != nil && *m.Category == category
	}), nil
}

func (s *MemoryStore) FindMedicinesByCompositionSubstring(_ context.Context, token, excludeName string, limit int) ([]string, error) {
	needle := strings.ToLower(token)
	return s.findMedicines(limit, func(m MedicineRecord) bool {
		return m.Name != excludeName && strings.Contains(strings.ToLower(m.Composition), needle)
	}), nil
}

func (s *MemoryStore) findMedicines(limit int, keep func(MedicineRecord) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, m := range s.medicines {
		if len(names) >= limit {
			break
		}
		if keep(m) {
			names = append(names, m.Name)
		}
	}
	return names
}

func (s *MemoryStore) InsertHistory(_ context.Context, h *HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.assignID(0)
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	s.history = append(s.history, *h)
	return nil
}

func (s *MemoryStore) InsertPurchase(_ context.Context, p *PurchaseEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.assignID(0)
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	s.purchases = append(s.purchases, *p)
	return nil
}

func (s *MemoryStore) ListHistoryByRequester(_ context.Context, requesterID string, limit, offset int) ([]HistoryRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []HistoryRecord
	for _, h := range s.history {
		if h.RequesterID == requesterID {
			matched = append(matched, h)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if offset >= total {
		return []HistoryRecord{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) PurchaseFrequencies(_ context.Context) ([]PurchaseFrequency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type key struct{ condition, medicine string }
	index := map[key]int{}
	var freqs []PurchaseFrequency
	for _, p := range s.purchases {
		k := key{p.ConditionName, p.MedicineName}
		i, ok := index[k]
		if !ok {
			i = len(freqs)
			index[k] = i
			freqs = append(freqs, PurchaseFrequency{ConditionName: p.ConditionName, MedicineName: p.MedicineName})
		}
		freqs[i].Count++
	}
	sort.SliceStable(freqs, func(i, j int) bool { return freqs[i].Count > freqs[j].Count })
	return freqs, nil
}

package triage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Corpus is an immutable snapshot of the symptom→condition corpus.
// A query reads one snapshot for all of its tokens.
type Corpus struct {
	entries   []CorpusEntry
	bySymptom map[string][]int
	loadedAt  time.Time
}

func NewCorpus(entries []CorpusEntry) *Corpus {
	cp := make([]CorpusEntry, len(entries))
	copy(cp, entries)
	bySymptom := make(map[string][]int, len(cp))
	for i, e := range cp {
		bySymptom[e.SymptomText] = append(bySymptom[e.SymptomText], i)
	}
	return &Corpus{entries: cp, bySymptom: bySymptom, loadedAt: time.Now().UTC()}
}

// WithSymptom returns every entry whose symptom text equals text exactly,
// in store order.
func (c *Corpus) WithSymptom(text string) []CorpusEntry {
	idx := c.bySymptom[text]
	out := make([]CorpusEntry, len(idx))
	for i, j := range idx {
		out[i] = c.entries[j]
	}
	return out
}

// Entries returns the snapshot's entries in store order. Callers must not
// modify the returned slice.
func (c *Corpus) Entries() []CorpusEntry {
	return c.entries
}

func (c *Corpus) Len() int {
	return len(c.entries)
}

func (c *Corpus) LoadedAt() time.Time {
	return c.loadedAt
}

// CorpusCache holds the current corpus snapshot and replaces it atomically
// on reload, so in-flight queries keep the snapshot they started with.
type CorpusCache struct {
	store   Store
	logger  zerolog.Logger
	current atomic.Pointer[Corpus]
	mu      sync.Mutex
}

func NewCorpusCache(store Store, logger zerolog.Logger) *CorpusCache {
	return &CorpusCache{store: store, logger: logger}
}

// Snapshot returns the current corpus, loading it on first use.
func (c *CorpusCache) Snapshot(ctx context.Context) (*Corpus, error) {
	if corpus := c.current.Load(); corpus != nil {
		return corpus, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if corpus := c.current.Load(); corpus != nil {
		return corpus, nil
	}
	return c.reloadLocked(ctx)
}

// Reload reads the corpus from the store and swaps it in.
func (c *CorpusCache) Reload(ctx context.Context) (*Corpus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

func (c *CorpusCache) reloadLocked(ctx context.Context) (*Corpus, error) {
	entries, err := c.store.ListCorpusEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	corpus := NewCorpus(entries)
	c.current.Store(corpus)
	c.logger.Info().Int("entries", corpus.Len()).Msg("corpus loaded")
	return corpus, nil
}

// Schedule reloads the corpus on a standard 5-field cron schedule until ctx
// is cancelled. An empty schedule disables refreshing.
func (c *CorpusCache) Schedule(ctx context.Context, schedule string) error {
	if schedule == "" {
		c.logger.Info().Msg("corpus refresh disabled")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	runner := cron.New(cron.WithParser(parser))
	_, err := runner.AddFunc(schedule, func() {
		if _, err := c.Reload(ctx); err != nil {
			c.logger.Error().Err(err).Msg("scheduled corpus reload failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid corpus refresh schedule %q: %w", schedule, err)
	}

	runner.Start()
	c.logger.Info().Str("schedule", schedule).Msg("corpus refresh scheduled")

	go func() {
		<-ctx.Done()
		<-runner.Stop().Done()
	}()
	return nil
}

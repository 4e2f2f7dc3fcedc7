package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Service struct {
	store     Store
	corpus    *CorpusCache
	matcher   *Matcher
	assembler *Assembler
	logger    zerolog.Logger
}

func NewService(store Store, corpus *CorpusCache, matcher *Matcher) *Service {
	if matcher == nil {
		matcher = NewMatcher(nil, 1)
	}
	return &Service{
		store:     store,
		corpus:    corpus,
		matcher:   matcher,
		assembler: NewAssembler(store),
		logger:    zerolog.Nop(),
	}
}

// SetLogger attaches a logger to the service.
func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Corpus returns the service's corpus cache.
func (s *Service) Corpus() *CorpusCache {
	return s.corpus
}

func validateQuery(q SearchQuery) error {
	if !validSeverities[q.Severity] {
		return fmt.Errorf("%w: severity %q must be Mild, Moderate or Severe", ErrInvalidInput, q.Severity)
	}
	if q.DurationDays < 0 {
		return fmt.Errorf("%w: duration_days must be >= 0, got %d", ErrInvalidInput, q.DurationDays)
	}
	return nil
}

// RunSearch runs q against the current corpus snapshot.
func (s *Service) RunSearch(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	if len(NormalizeSymptoms(q.RawSymptoms)) == 0 {
		return emptyResult(RiskScore(q, 0)), nil
	}
	corpus, err := s.corpus.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, corpus, q)
}

// Search runs the full pipeline for q against corpus: match, rank, score,
// assemble recommendations and record history. It either completes or
// returns the first store error; no partial result is produced.
func (s *Service) Search(ctx context.Context, corpus *Corpus, q SearchQuery) (*SearchResult, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	tokens := NormalizeSymptoms(q.RawSymptoms)
	matches := s.matcher.Match(corpus, tokens)
	ranked := RankConditions(corpus, matches, MaxRankedConditions)
	risk := RiskScore(q, len(ranked))

	if len(ranked) == 0 {
		s.logger.Debug().Int("tokens", len(tokens)).Msg("search matched no conditions")
		return emptyResult(risk), nil
	}

	recs, err := s.assembler.Recommendations(ctx, ranked)
	if err != nil {
		return nil, err
	}
	collaborative, err := s.assembler.Collaborative(ctx, ranked)
	if err != nil {
		return nil, err
	}
	similar, err := s.assembler.Similar(ctx, recs)
	if err != nil {
		return nil, err
	}

	record := BuildHistoryRecord(q, tokens, ranked, recs, risk)
	if err := s.store.InsertHistory(ctx, record); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	s.logger.Debug().
		Int("tokens", len(tokens)).
		Int("matched", len(ranked)).
		Int("risk_score", risk).
		Msg("search completed")

	return &SearchResult{
		Matched:          ranked,
		RankedConditions: recs,
		RiskScore:        risk,
		Collaborative:    collaborative,
		Similar:          similar,
	}, nil
}

// RecordPurchase appends a purchase event.
func (s *Service) RecordPurchase(ctx context.Context, userID, condition, medicine string) (*PurchaseEvent, error) {
	p := &PurchaseEvent{
		UserID:        strings.TrimSpace(userID),
		ConditionName: strings.TrimSpace(condition),
		MedicineName:  strings.TrimSpace(medicine),
		Timestamp:     time.Now().UTC(),
	}
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if p.ConditionName == "" {
		return nil, fmt.Errorf("%w: condition is required", ErrInvalidInput)
	}
	if p.MedicineName == "" {
		return nil, fmt.Errorf("%w: medicine is required", ErrInvalidInput)
	}
	if err := s.store.InsertPurchase(ctx, p); err != nil {
		return nil, fmt.Errorf("insert purchase: %w", err)
	}
	return p, nil
}

// ListHistory pages through a requester's search history, newest first.
func (s *Service) ListHistory(ctx context.Context, requesterID string, limit, offset int) ([]HistoryRecord, int, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, 0, fmt.Errorf("%w: requester is required", ErrInvalidInput)
	}
	items, total, err := s.store.ListHistoryByRequester(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return items, total, nil
}

// FrequentPurchases returns the most purchased medicine for every condition
// that has purchases, most purchased first.
func (s *Service) FrequentPurchases(ctx context.Context) ([]PurchaseFrequency, error) {
	freqs, err := s.store.PurchaseFrequencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase frequencies: %w", err)
	}
	seen := map[string]bool{}
	top := []PurchaseFrequency{}
	for _, f := range freqs {
		if seen[f.ConditionName] {
			continue
		}
		seen[f.ConditionName] = true
		top = append(top, f)
	}
	return top, nil
}

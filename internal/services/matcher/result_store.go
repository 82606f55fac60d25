package matcher

import (
	"context"
	"slices"
	"sync"

	"loan-matchmaker/internal/models"
)

// ResultStore keeps the latest ranked match list per session. Save replaces
// any previous list; Get returns nil when nothing was stored.
type ResultStore interface {
	Save(ctx context.Context, sessionID string, matches []models.LenderMatch) error
	Get(ctx context.Context, sessionID string) ([]models.LenderMatch, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryResultStore is an in-process ResultStore.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string][]models.LenderMatch
}

// NewMemoryResultStore creates an empty store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string][]models.LenderMatch)}
}

// Save stores a copy of matches.
func (s *MemoryResultStore) Save(_ context.Context, sessionID string, matches []models.LenderMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[sessionID] = cloneMatches(matches)
	return nil
}

// Get returns a copy of the stored list.
func (s *MemoryResultStore) Get(_ context.Context, sessionID string) ([]models.LenderMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, ok := s.results[sessionID]
	if !ok {
		return nil, nil
	}
	return cloneMatches(matches), nil
}

// Delete drops the stored list.
func (s *MemoryResultStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.results, sessionID)
	return nil
}

func cloneMatches(matches []models.LenderMatch) []models.LenderMatch {
	out := make([]models.LenderMatch, len(matches))
	for i, m := range matches {
		m.Reasons = slices.Clone(m.Reasons)
		m.Lender.EmploymentTypes = slices.Clone(m.Lender.EmploymentTypes)
		m.Lender.Features = slices.Clone(m.Lender.Features)
		if m.MatchProbability != nil {
			p := *m.MatchProbability
			m.MatchProbability = &p
		}
		out[i] = m
	}
	return out
}

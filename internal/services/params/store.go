package params

import (
	"context"
	"sync"

	"loan-matchmaker/internal/models"
)

// Store persists parameter records by session id. Get returns nil, nil when
// the session has no record yet.
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.ParameterRecord, error)
	Put(ctx context.Context, record *models.ParameterRecord) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.ParameterRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.ParameterRecord)}
}

// Get returns a copy of the stored record.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.ParameterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	rec.Parameters = cloneParameters(rec.Parameters)
	return &rec, nil
}

// Put replaces the stored record with a copy of record.
func (s *MemoryStore) Put(_ context.Context, record *models.ParameterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *record
	rec.Parameters = cloneParameters(record.Parameters)
	s.records[record.SessionID] = rec
	return nil
}

func cloneParameters(p models.LoanParameters) models.LoanParameters {
	return models.LoanParameters{
		LoanAmount:         clonePtr(p.LoanAmount),
		AnnualIncome:       clonePtr(p.AnnualIncome),
		EmploymentStatus:   clonePtr(p.EmploymentStatus),
		CreditScore:        clonePtr(p.CreditScore),
		LoanPurpose:        clonePtr(p.LoanPurpose),
		DebtToIncomeRatio:  clonePtr(p.DebtToIncomeRatio),
		EmploymentDuration: clonePtr(p.EmploymentDuration),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

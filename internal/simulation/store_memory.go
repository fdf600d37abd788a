package simulation

import (
	"context"
	"fmt"
	"sync"

	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Store owns SimulationResult persistence. Sentinel error contract:
// ErrNotFound for missing results, ErrConflict for a second Create,
// ErrAlreadyUsed for a second SetPlainScore.
type Store interface {
	Create(ctx context.Context, result Result) error
	FindByRecord(ctx context.Context, id domain.RecordID) (Result, error)
	SetPlainScore(ctx context.Context, id domain.RecordID, score uint32) error
}

// InMemoryStore keeps simulation results in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[domain.RecordID]Result
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{results: make(map[domain.RecordID]Result)}
}

func (s *InMemoryStore) Create(_ context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.RecordID]; ok {
		return fmt.Errorf("simulation for record %s: %w", result.RecordID, sentinel.ErrConflict)
	}
	s.results[result.RecordID] = result
	return nil
}

func (s *InMemoryStore) FindByRecord(_ context.Context, id domain.RecordID) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return Result{}, fmt.Errorf("simulation for record %s: %w", id, sentinel.ErrNotFound)
	}
	return result, nil
}

func (s *InMemoryStore) SetPlainScore(_ context.Context, id domain.RecordID, score uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	if !ok {
		return fmt.Errorf("simulation for record %s: %w", id, sentinel.ErrNotFound)
	}
	if _, revealed := result.PlainScore(); revealed {
		return fmt.Errorf("score for record %s: %w", id, sentinel.ErrAlreadyUsed)
	}
	s.results[id] = result.withPlainScore(score)
	return nil
}

package record

import (
	"context"
	"sync"
	"time"

	"veil/pkg/domain"
)

type memoryEntry struct {
	record EncryptedRecord
	shadow Shadow
}

// InMemoryStore keeps records in process memory. It is the default store for
// development and the unit-test seam for everything above it.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  uint64
	entries map[domain.RecordID]*memoryEntry
	order   []domain.RecordID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.RecordID]*memoryEntry)}
}

func (s *InMemoryStore) Create(_ context.Context, fields FieldSet) (EncryptedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec := EncryptedRecord{
		ID: domain.RecordID(s.nextID),
		Fields: FieldSet{
			Skill:          fields.Skill.Clone(),
			LearningEffort: fields.LearningEffort.Clone(),
			Impact:         fields.Impact.Clone(),
			Goal:           fields.Goal.Clone(),
		},
		CreatedAt: time.Now(),
	}
	s.entries[rec.ID] = &memoryEntry{record: rec, shadow: UnrevealedShadow()}
	s.order = append(s.order, rec.ID)
	return rec, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.RecordID) (EncryptedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return EncryptedRecord{}, sentinelNotFound(id)
	}
	return entry.record, nil
}

func (s *InMemoryStore) Shadow(_ context.Context, id domain.RecordID) (Shadow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return Shadow{}, sentinelNotFound(id)
	}
	return entry.shadow, nil
}

func (s *InMemoryStore) Reveal(_ context.Context, id domain.RecordID, values FieldValues) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return sentinelNotFound(id)
	}
	if _, revealed := entry.shadow.Revealed(); revealed {
		return sentinelAlreadyUsed(id)
	}
	entry.shadow = RevealedShadow(values)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]EncryptedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EncryptedRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].record)
	}
	return out, nil
}

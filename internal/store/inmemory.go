package store

import (
	"context"
	"sync"
)

// MemoryStore is the process-wide in-memory store. It is the canonical
// implementation: user state is bound to the process lifetime on purpose.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*UserRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*UserRecord)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (UserRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return UserRecord{UserID: userID}, false, nil
	}
	return rec.clone(), true, nil
}

func (s *MemoryStore) Ensure(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[userID]; ok {
		return false, nil
	}
	s.records[userID] = &UserRecord{UserID: userID}
	return true, nil
}

func (s *MemoryStore) Record(_ context.Context, userID string, fact Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(userID).apply(fact)
	return nil
}

func (s *MemoryStore) SetPosition(_ context.Context, userID string, step Step, question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensureLocked(userID)
	rec.apply(Fact{Key: "current_question", Value: question})
	rec.apply(Fact{Key: "current_step", Value: string(step)})
	rec.CurrentStep = step
	rec.CurrentQuestion = question
	return nil
}

func (s *MemoryStore) All(_ context.Context) (map[string]UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]UserRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.clone()
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ensureLocked(userID string) *UserRecord {
	rec, ok := s.records[userID]
	if !ok {
		rec = &UserRecord{UserID: userID}
		s.records[userID] = rec
	}
	return rec
}

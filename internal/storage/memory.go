package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"openfuzz/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	definitions map[string]model.DefinitionRecord
	inferences  map[string]model.InferenceRecord
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.definitions = make(map[string]model.DefinitionRecord)
	s.inferences = make(map[string]model.InferenceRecord)
	s.order = nil
	return nil
}

func (s *MemoryStore) SaveDefinition(_ context.Context, record model.DefinitionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}
	// Round trip through the codec so stored definitions share no slices
	// with the caller.
	payload, err := EncodeDefinition(record)
	if err != nil {
		return err
	}
	copied, err := DecodeDefinition(payload)
	if err != nil {
		return err
	}
	s.definitions[record.Name] = copied
	return nil
}

func (s *MemoryStore) GetDefinition(_ context.Context, name string) (model.DefinitionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.DefinitionRecord{}, false, errNotInitialized
	}
	record, ok := s.definitions[name]
	if !ok {
		return model.DefinitionRecord{}, false, nil
	}
	payload, err := EncodeDefinition(record)
	if err != nil {
		return model.DefinitionRecord{}, false, err
	}
	copied, err := DecodeDefinition(payload)
	if err != nil {
		return model.DefinitionRecord{}, false, err
	}
	return copied, true, nil
}

func (s *MemoryStore) ListDefinitions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) SaveInference(_ context.Context, record model.InferenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if record.ID == "" {
		return errors.New("inference record id is required")
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}
	if _, exists := s.inferences[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	record.Result = cloneResult(record.Result)
	s.inferences[record.ID] = record
	return nil
}

func (s *MemoryStore) GetInference(_ context.Context, id string) (model.InferenceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.InferenceRecord{}, false, errNotInitialized
	}
	record, ok := s.inferences[id]
	if !ok {
		return model.InferenceRecord{}, false, nil
	}
	record.Result = cloneResult(record.Result)
	return record, true, nil
}

func (s *MemoryStore) ListInferences(_ context.Context, limit int) ([]model.InferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.InferenceRecord, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		record := s.inferences[s.order[i]]
		record.Result = cloneResult(record.Result)
		out = append(out, record)
	}
	return out, nil
}

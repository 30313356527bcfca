package storage

import (
	"context"
	"errors"
	"sync"

	"brandevo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	generations []model.Generation
	head        headCache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.generations = nil
	s.head.reset()
	return nil
}

func (s *MemoryStore) Current() (model.Head, bool) {
	return s.head.load()
}

func (s *MemoryStore) Bootstrap(_ context.Context, genesis model.Generation) (model.Generation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return model.Generation{}, false, errors.New("store is not initialized")
	}
	if n := len(s.generations); n > 0 {
		return s.generations[n-1].Clone(), false, nil
	}
	s.generations = append(s.generations, genesis.Clone())
	s.head.set(genesis)
	return genesis.Clone(), true, nil
}

func (s *MemoryStore) CommitEvolution(_ context.Context, evaluated, successor model.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, ok := s.latestLocked()
	if err := validateCommit(latest, ok, evaluated, successor); err != nil {
		return err
	}
	s.generations[len(s.generations)-1] = evaluated.Clone()
	s.generations = append(s.generations, successor.Clone())
	s.head.set(successor)
	return nil
}

func (s *MemoryStore) RecordStall(_ context.Context, head model.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, ok := s.latestLocked()
	if err := validateStall(latest, ok, head); err != nil {
		return err
	}
	s.generations[len(s.generations)-1] = head.Clone()
	s.head.set(head)
	return nil
}

func (s *MemoryStore) GetGeneration(_ context.Context, id int) (model.Generation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.generations) {
		return model.Generation{}, false, nil
	}
	return s.generations[id].Clone(), true, nil
}

func (s *MemoryStore) LatestGeneration(_ context.Context) (model.Generation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest, ok := s.latestLocked()
	if !ok {
		return model.Generation{}, false, nil
	}
	return latest.Clone(), true, nil
}

func (s *MemoryStore) ListGenerations(_ context.Context, limit int) ([]model.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.generations)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Generation, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.generations[i].Clone())
	}
	return out, nil
}

func (s *MemoryStore) latestLocked() (model.Generation, bool) {
	if len(s.generations) == 0 {
		return model.Generation{}, false
	}
	return s.generations[len(s.generations)-1], true
}

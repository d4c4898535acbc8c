package handlers

import (
	"delivery-route-engine/internal/domain"
	"sync"
)

// RunStore keeps the most recent run so status queries can replay it.
type RunStore struct {
	mu   sync.RWMutex
	last *domain.RunResult
}

func (s *RunStore) Put(res *domain.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = res
}

func (s *RunStore) Latest() (*domain.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

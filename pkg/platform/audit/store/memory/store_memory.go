package memory

import (
	"context"
	"slices"
	"sync"

	audit "ingestgate/pkg/platform/audit"
)

// InMemoryStore keeps security events in arrival order. Used in tests and
// when AUDIT_SINK=memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.SecurityEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Write(_ context.Context, events []audit.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events), nil
}

// ListByKind returns events of one kind in arrival order.
func (s *InMemoryStore) ListByKind(_ context.Context, kind audit.Kind) ([]audit.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.SecurityEvent
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns the newest limit events, newest last.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	return slices.Clone(s.events[start:]), nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

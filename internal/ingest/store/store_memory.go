package store

import (
	"context"
	"fmt"
	"sync"

	"ingestgate/internal/ingest/models"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/sentinel"
)

// InMemory keeps events for tests and local runs.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.EventID]models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.EventID]models.Event)}
}

func (s *InMemory) Save(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("event %s: %w", event.ID, sentinel.ErrConflict)
	}
	s.events[event.ID] = *event
	return nil
}

// FindByID returns the event only when it belongs to partnerID.
func (s *InMemory) FindByID(_ context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok || e.PartnerID != partnerID {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

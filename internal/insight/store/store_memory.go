package store

import (
	"context"
	"fmt"
	"sync"

	"ingestgate/internal/insight/models"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/sentinel"
)

// InMemory holds at most one insight per event.
type InMemory struct {
	mu      sync.RWMutex
	byEvent map[id.EventID]models.Insight
}

func NewInMemory() *InMemory {
	return &InMemory{byEvent: make(map[id.EventID]models.Insight)}
}

func (s *InMemory) Save(_ context.Context, insight *models.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEvent[insight.EventID]; ok {
		return fmt.Errorf("insight for event %s: %w", insight.EventID, sentinel.ErrConflict)
	}
	s.byEvent[insight.EventID] = *insight
	return nil
}

func (s *InMemory) FindByEventID(_ context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.byEvent[eventID]
	if !ok || in.PartnerID != partnerID {
		return nil, sentinel.ErrNotFound
	}
	return &in, nil
}

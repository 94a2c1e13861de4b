package store

import (
	"context"
	"fmt"
	"sync"

	"ingestgate/internal/partner/models"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/sentinel"
)

// InMemory holds partners and credentials for tests and local runs.
type InMemory struct {
	mu          sync.RWMutex
	partners    map[id.PartnerID]models.Partner
	credentials map[string]models.Credential // by key id
}

func NewInMemory() *InMemory {
	return &InMemory{
		partners:    make(map[id.PartnerID]models.Partner),
		credentials: make(map[string]models.Credential),
	}
}

func (s *InMemory) CreatePartner(_ context.Context, p *models.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[p.ID]; ok {
		return fmt.Errorf("partner %s: %w", p.ID, sentinel.ErrConflict)
	}
	s.partners[p.ID] = *p
	return nil
}

func (s *InMemory) CreateCredential(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[c.PartnerID]; !ok {
		return fmt.Errorf("partner %s: %w", c.PartnerID, sentinel.ErrNotFound)
	}
	if _, ok := s.credentials[c.KeyID]; ok {
		return fmt.Errorf("key id %s: %w", c.KeyID, sentinel.ErrConflict)
	}
	s.credentials[c.KeyID] = *c
	return nil
}

func (s *InMemory) SetPartnerActive(_ context.Context, partnerID id.PartnerID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[partnerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.Active = active
	s.partners[partnerID] = p
	return nil
}

func (s *InMemory) FindCredentialByKeyID(_ context.Context, keyID string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[keyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c.PartnerActive = s.partners[c.PartnerID].Active
	return &c, nil
}

func (s *InMemory) FindPartner(_ context.Context, partnerID id.PartnerID) (*models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners[partnerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Package memrepo provides in-memory implementations of the repository
// interfaces for tests, mirroring the conditional-write semantics of the
// SQL-backed versions.
package memrepo

import (
	"context"
	"sync"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

type ClaimantStore struct {
	mu        sync.Mutex
	claimants map[string]*models.Claimant
}

func NewClaimantStore() *ClaimantStore {
	return &ClaimantStore{claimants: make(map[string]*models.Claimant)}
}

// Put seeds a claimant directly.
func (s *ClaimantStore) Put(c *models.Claimant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.claimants[c.ID] = &cp
}

func (s *ClaimantStore) GetByID(_ context.Context, id string) (*models.Claimant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claimants[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "claimant", ID: id}
	}
	cp := *c
	return &cp, nil
}

func (s *ClaimantStore) GetOrCreate(ctx context.Context, id, language string) (*models.Claimant, error) {
	if c, err := s.GetByID(ctx, id); err == nil {
		return c, nil
	}
	s.mu.Lock()
	s.claimants[id] = &models.Claimant{
		ID:       id,
		Language: language,
		Status:   models.ClaimantStatusNew,
	}
	s.mu.Unlock()
	return s.GetByID(ctx, id)
}

func (s *ClaimantStore) Update(_ context.Context, claimant *models.Claimant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *claimant
	s.claimants[claimant.ID] = &cp
	return nil
}

func (s *ClaimantStore) GrantCode(_ context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claimants[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "claimant", ID: id}
	}
	if c.GrantsReceived >= models.MaxGrantsPerClaimant {
		return repositories.ErrGrantLimitReached
	}
	c.Status = models.ClaimantStatusReceived
	c.GrantedCode = code
	c.GrantsReceived++
	return nil
}

func (s *ClaimantStore) ResetByCodes(_ context.Context, codes []string) ([]*models.Claimant, error) {
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var affected []*models.Claimant
	for _, c := range s.claimants {
		if c.GrantedCode != "" && set[c.GrantedCode] {
			cp := *c
			affected = append(affected, &cp)
			c.Status = models.ClaimantStatusNew
			c.GrantedCode = ""
		}
	}
	return affected, nil
}

func (s *ClaimantStore) FindByGrantedCode(_ context.Context, code string) ([]*models.Claimant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Claimant
	for _, c := range s.claimants {
		if c.GrantedCode == code {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *ClaimantStore) RecordComplaint(_ context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claimants[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "claimant", ID: id}
	}
	if !c.HasReported(code) {
		c.ReportedCodes = append(c.ReportedCodes, code)
	}
	c.ComplaintsFiled++
	c.LastComplaintAt = time.Now()
	return nil
}

func (s *ClaimantStore) Ban(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claimants[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "claimant", ID: id}
	}
	c.Banned = true
	c.BanReason = reason
	return nil
}

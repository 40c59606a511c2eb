package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

type QueueStore struct {
	mu      sync.Mutex
	entries map[string]*models.QueueEntry
	nextID  int64
	joined  int

	// UpdateBatches records the size of every UpdatePositions call so
	// chunking behaviour can be asserted.
	UpdateBatches []int
}

func NewQueueStore() *QueueStore {
	return &QueueStore{entries: make(map[string]*models.QueueEntry), nextID: 1}
}

func (s *QueueStore) Admit(_ context.Context, claimantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[claimantID]; ok {
		return 0, repositories.ErrAlreadyQueued
	}

	max := 0
	for _, e := range s.entries {
		if e.Position > max {
			max = e.Position
		}
	}
	s.joined++
	s.entries[claimantID] = &models.QueueEntry{
		ID:         s.nextID,
		ClaimantID: claimantID,
		Position:   max + 1,
		JoinedAt:   time.Unix(0, 0).Add(time.Duration(s.joined) * time.Second),
	}
	s.nextID++
	return max + 1, nil
}

// SetJoinedAt overrides an entry's join time for wait-duration tests.
func (s *QueueStore) SetJoinedAt(claimantID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[claimantID]; ok {
		e.JoinedAt = at
	}
}

func (s *QueueStore) Head(_ context.Context) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var head *models.QueueEntry
	for _, e := range s.entries {
		if head == nil || e.Position < head.Position {
			head = e
		}
	}
	if head == nil {
		return nil, repositories.ErrQueueEmpty
	}
	cp := *head
	return &cp, nil
}

func (s *QueueStore) Remove(_ context.Context, claimantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, claimantID)
	return nil
}

func (s *QueueStore) All(_ context.Context) ([]*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.QueueEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *QueueStore) UpdatePositions(_ context.Context, entries []*models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateBatches = append(s.UpdateBatches, len(entries))
	for _, e := range entries {
		if existing, ok := s.entries[e.ClaimantID]; ok {
			existing.Position = e.Position
		}
	}
	return nil
}

func (s *QueueStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *QueueStore) PositionOf(_ context.Context, claimantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[claimantID]
	if !ok {
		return 0, &repositories.NotFoundError{Entity: "queue_entry", ID: claimantID}
	}
	return e.Position, nil
}

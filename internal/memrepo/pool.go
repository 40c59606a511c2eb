package memrepo

import (
	"context"
	"sync"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

type PoolStore struct {
	mu     sync.Mutex
	slots  []*models.PoolSlot
	nextID int64
}

func NewPoolStore() *PoolStore {
	return &PoolStore{nextID: 1}
}

func (s *PoolStore) AddSlotsCapped(_ context.Context, code, submitterID string, requested, cap int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing := 0
	for _, slot := range s.slots {
		if slot.Code == code {
			existing++
		}
	}

	room := cap - existing
	if room <= 0 {
		return 0, nil
	}
	if requested < room {
		room = requested
	}

	for i := 0; i < room; i++ {
		s.slots = append(s.slots, &models.PoolSlot{
			ID:          s.nextID,
			Code:        code,
			SubmittedBy: submitterID,
			Status:      models.SlotStatusAvailable,
			UsageNumber: existing + i + 1,
			TotalLimit:  cap,
			CreatedAt:   time.Now(),
		})
		s.nextID++
	}
	return room, nil
}

func (s *PoolStore) TakeAvailable(_ context.Context) (*models.PoolSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.Status == models.SlotStatusAvailable {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, repositories.ErrNoSlotAvailable
}

func (s *PoolStore) MarkSent(_ context.Context, slotID int64, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.ID == slotID {
			if slot.Status != models.SlotStatusAvailable {
				return repositories.ErrSlotAlreadySent
			}
			slot.Status = models.SlotStatusSent
			slot.SentTo = recipientID
			slot.SentAt = time.Now()
			return nil
		}
	}
	return repositories.ErrSlotAlreadySent
}

func (s *PoolStore) RemoveAllForCode(_ context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.slots[:0]
	var removed int64
	for _, slot := range s.slots {
		if slot.Code == code {
			removed++
			continue
		}
		kept = append(kept, slot)
	}
	s.slots = kept
	return removed, nil
}

func (s *PoolStore) CountForCode(_ context.Context, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, slot := range s.slots {
		if slot.Code == code {
			count++
		}
	}
	return count, nil
}

func (s *PoolStore) CountAvailable(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, slot := range s.slots {
		if slot.Status == models.SlotStatusAvailable {
			count++
		}
	}
	return count, nil
}

func (s *PoolStore) CodesBySubmitters(_ context.Context, submitterIDs []string) ([]string, error) {
	set := make(map[string]bool, len(submitterIDs))
	for _, id := range submitterIDs {
		set[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var codes []string
	for _, slot := range s.slots {
		if set[slot.SubmittedBy] && !seen[slot.Code] {
			seen[slot.Code] = true
			codes = append(codes, slot.Code)
		}
	}
	return codes, nil
}

func (s *PoolStore) SubmitterOf(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.Code == code {
			return slot.SubmittedBy, nil
		}
	}
	return "", &repositories.NotFoundError{Entity: "pool_slot", ID: code}
}

func (s *PoolStore) GetByID(_ context.Context, slotID int64) (*models.PoolSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.ID == slotID {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "pool_slot", ID: slotID}
}

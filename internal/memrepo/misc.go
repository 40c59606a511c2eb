package memrepo

import (
	"context"
	"sync"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

type LeaseStore struct {
	mu     sync.Mutex
	leases map[string]*models.Lease

	// AcquireErr, when set, fails every Acquire call.
	AcquireErr error
}

func NewLeaseStore() *LeaseStore {
	return &LeaseStore{leases: make(map[string]*models.Lease)}
}

func (s *LeaseStore) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AcquireErr != nil {
		return false, s.AcquireErr
	}

	existing, ok := s.leases[name]
	if ok && !existing.Expired(time.Now()) {
		return false, nil
	}
	s.leases[name] = &models.Lease{
		Name:       name,
		AcquiredAt: time.Now(),
		TTLSeconds: int(ttl / time.Second),
	}
	return true, nil
}

func (s *LeaseStore) Release(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, name)
	return nil
}

// Hold plants an unexpired lease so the next Acquire fails.
func (s *LeaseStore) Hold(name string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases[name] = &models.Lease{
		Name:       name,
		AcquiredAt: time.Now(),
		TTLSeconds: int(ttl / time.Second),
	}
}

// Held reports whether a lease row currently exists for name.
func (s *LeaseStore) Held(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.leases[name]
	return ok
}

type SettingsStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{counters: make(map[string]int64)}
}

func (s *SettingsStore) IncrementCounter(_ context.Context, name string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	value := s.counters[name] + delta
	if value < 0 {
		value = 0
	}
	s.counters[name] = value
	return nil
}

func (s *SettingsStore) SetCounter(_ context.Context, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] = value
	return nil
}

func (s *SettingsStore) GetCounter(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name], nil
}

type TransactionStore struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{transactions: make(map[string]*models.Transaction)}
}

func (s *TransactionStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.ID] = &cp
	return nil
}

// All returns a snapshot of every stored transaction.
func (s *TransactionStore) All() []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		cp := *tx
		out = append(out, &cp)
	}
	return out
}

func (s *TransactionStore) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "transaction", ID: id}
	}
	cp := *tx
	return &cp, nil
}

func (s *TransactionStore) AppendArtifact(_ context.Context, id, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "transaction", ID: id}
	}
	tx.VideosGenerated = append(tx.VideosGenerated, artifactID)
	return nil
}

func (s *TransactionStore) MarkDelivered(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "transaction", ID: id}
	}
	tx.Delivered = true
	return nil
}

func (s *TransactionStore) MarkRefunded(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "transaction", ID: id}
	}
	tx.Status = models.TransactionStatusRefunded
	return nil
}

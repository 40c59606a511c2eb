// Package waitlist maintains the ordered queue of claimants waiting for
// an invite slot.
package waitlist

import (
	"context"
	"log/slog"
	"sort"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

// RenumberBatchSize bounds each position-rewrite batch to stay under the
// store's batched-write limits.
const RenumberBatchSize = 400

type Manager struct {
	repo repositories.QueueRepository
}

func NewManager(repo repositories.QueueRepository) *Manager {
	return &Manager{repo: repo}
}

// Admit adds the claimant at the tail and returns the assigned position.
// repositories.ErrAlreadyQueued when the claimant is already waiting.
func (m *Manager) Admit(ctx context.Context, claimantID string) (int, error) {
	return m.repo.Admit(ctx, claimantID)
}

// PeekHead returns the lowest-position entry without removing it.
// repositories.ErrQueueEmpty when there is none.
func (m *Manager) PeekHead(ctx context.Context) (*models.QueueEntry, error) {
	return m.repo.Head(ctx)
}

// Remove deletes the claimant's entry and renumbers the remainder.
func (m *Manager) Remove(ctx context.Context, claimantID string) error {
	if err := m.repo.Remove(ctx, claimantID); err != nil {
		return err
	}
	return m.Renumber(ctx)
}

// Renumber rewrites positions as a dense 1..N sequence ordered by join
// time, in bounded batches. A batch failure keeps the already-committed
// batches and is logged, not retried; positions are advisory and the next
// renumber pass heals any gap.
func (m *Manager) Renumber(ctx context.Context) error {
	entries, err := m.repo.All(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})

	dirty := entries[:0]
	for i, entry := range entries {
		if entry.Position != i+1 {
			entry.Position = i + 1
			dirty = append(dirty, entry)
		}
	}

	for start := 0; start < len(dirty); start += RenumberBatchSize {
		end := start + RenumberBatchSize
		if end > len(dirty) {
			end = len(dirty)
		}
		if err := m.repo.UpdatePositions(ctx, dirty[start:end]); err != nil {
			slog.Error("Queue renumber batch failed",
				slog.String("type", "db"),
				slog.Int("batch_start", start),
				slog.Int("batch_size", end-start),
				slog.Any("error", err))
			return err
		}
	}
	return nil
}

// Size returns the current number of waiting claimants.
func (m *Manager) Size(ctx context.Context) (int, error) {
	return m.repo.Count(ctx)
}

// Position returns the claimant's advisory queue position.
func (m *Manager) Position(ctx context.Context, claimantID string) (int, error) {
	return m.repo.PositionOf(ctx, claimantID)
}

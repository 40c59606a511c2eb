// Package pool manages the inventory of redeemable invite-code slots.
// One physical code backs up to its usage limit in slots; the lifetime
// slot total per code value is capped across every submitter.
package pool

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

const codeCountCacheSize = 1024

type Manager struct {
	repo       repositories.PoolRepository
	settings   repositories.SettingsRepository
	usageLimit int

	// Per-code slot count estimates for display. Never consulted for
	// allocation or cap decisions; those always hit the store.
	countCache *lru.Cache
}

func NewManager(repo repositories.PoolRepository, settings repositories.SettingsRepository, usageLimit int) *Manager {
	cache, _ := lru.New(codeCountCacheSize)
	return &Manager{
		repo:       repo,
		settings:   settings,
		usageLimit: usageLimit,
		countCache: cache,
	}
}

func (m *Manager) UsageLimit() int {
	return m.usageLimit
}

// AddSlots submits count uses of code into the pool. The number actually
// added is min(count, cap - lifetime slots for code) and may be zero when
// the code is already exhausted, regardless of who is donating it.
func (m *Manager) AddSlots(ctx context.Context, code, submitterID string, count int) (int, error) {
	added, err := m.repo.AddSlotsCapped(ctx, code, submitterID, count, m.usageLimit)
	if err != nil {
		return 0, err
	}
	if added == 0 {
		return 0, nil
	}

	// Counter update is best-effort; drift is tolerated.
	if err := m.settings.IncrementCounter(ctx, models.CounterAvailableCodes, int64(added)); err != nil {
		slog.Warn("Failed to bump available counter",
			slog.String("type", "db"),
			slog.String("code", code),
			slog.Any("error", err))
	}

	if total, err := m.repo.CountForCode(ctx, code); err == nil {
		m.countCache.Add(code, total)
	}
	return added, nil
}

// TakeAvailable returns an arbitrary available slot without consuming it.
// Consumption happens in MarkSent; callers run both under the allocation
// lease so that no two schedulers claim the same slot.
func (m *Manager) TakeAvailable(ctx context.Context) (*models.PoolSlot, error) {
	return m.repo.TakeAvailable(ctx)
}

func (m *Manager) MarkSent(ctx context.Context, slotID int64, recipientID string) error {
	if err := m.repo.MarkSent(ctx, slotID, recipientID); err != nil {
		return err
	}

	if err := m.settings.IncrementCounter(ctx, models.CounterAvailableCodes, -1); err != nil {
		slog.Warn("Failed to decrement available counter",
			slog.String("type", "db"),
			slog.Int64("slot_id", slotID),
			slog.Any("error", err))
	}
	return nil
}

// RemoveAllForCode purges every slot carrying the code value, whatever
// its status. Used by revocation.
func (m *Manager) RemoveAllForCode(ctx context.Context, code string) (int64, error) {
	removed, err := m.repo.RemoveAllForCode(ctx, code)
	if err != nil {
		return 0, err
	}
	m.countCache.Remove(code)

	// Resync the advisory counter from a live count rather than guessing
	// how many of the purged slots were still available.
	if live, err := m.repo.CountAvailable(ctx); err == nil {
		if err := m.settings.SetCounter(ctx, models.CounterAvailableCodes, int64(live)); err != nil {
			slog.Warn("Failed to resync available counter",
				slog.String("type", "db"),
				slog.Any("error", err))
		}
	}
	return removed, nil
}

// CodeCount is the lifetime slot total recorded for a code value,
// served from the per-code cache when possible. Display only; cap
// decisions in AddSlots always count against the store.
func (m *Manager) CodeCount(ctx context.Context, code string) (int, error) {
	if cached, ok := m.countCache.Get(code); ok {
		return cached.(int), nil
	}
	total, err := m.repo.CountForCode(ctx, code)
	if err != nil {
		return 0, err
	}
	m.countCache.Add(code, total)
	return total, nil
}

// AvailableCount is the live ground-truth count of available slots.
func (m *Manager) AvailableCount(ctx context.Context) (int, error) {
	return m.repo.CountAvailable(ctx)
}

// EstimatedAvailable is the advisory counter, suitable only for display.
func (m *Manager) EstimatedAvailable(ctx context.Context) int64 {
	value, err := m.settings.GetCounter(ctx, models.CounterAvailableCodes)
	if err != nil {
		return 0
	}
	return value
}

package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/hyewave/invitewave/internal/memrepo"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

func newTestManager(usageLimit int) (*Manager, *memrepo.PoolStore, *memrepo.SettingsStore) {
	slots := memrepo.NewPoolStore()
	settings := memrepo.NewSettingsStore()
	return NewManager(slots, settings, usageLimit), slots, settings
}

func TestAddSlotsCapAcrossSubmitters(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(4)

	added, err := m.AddSlots(ctx, "AB12CD", "alice", 3)
	if err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if added != 3 {
		t.Fatalf("first submit added = %d, want 3", added)
	}

	// A different submitter donating the same code only gets the
	// remaining headroom.
	added, err = m.AddSlots(ctx, "AB12CD", "bob", 3)
	if err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if added != 1 {
		t.Fatalf("second submit added = %d, want 1", added)
	}

	// Exhausted code accepts nothing, from anyone.
	added, err = m.AddSlots(ctx, "AB12CD", "carol", 1)
	if err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if added != 0 {
		t.Fatalf("exhausted submit added = %d, want 0", added)
	}

	count, err := m.AvailableCount(ctx)
	if err != nil {
		t.Fatalf("AvailableCount: %v", err)
	}
	if count != 4 {
		t.Fatalf("AvailableCount = %d, want 4", count)
	}
	if est := m.EstimatedAvailable(ctx); est != 4 {
		t.Fatalf("EstimatedAvailable = %d, want 4", est)
	}
}

func TestTakeAvailableDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(4)
	if _, err := m.AddSlots(ctx, "AB12CD", "alice", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	first, err := m.TakeAvailable(ctx)
	if err != nil {
		t.Fatalf("TakeAvailable: %v", err)
	}
	second, err := m.TakeAvailable(ctx)
	if err != nil {
		t.Fatalf("TakeAvailable again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeated TakeAvailable returned different slots: %d vs %d", first.ID, second.ID)
	}
}

func TestMarkSentIsOneShot(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(4)
	if _, err := m.AddSlots(ctx, "AB12CD", "alice", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	slot, err := m.TakeAvailable(ctx)
	if err != nil {
		t.Fatalf("TakeAvailable: %v", err)
	}
	if err := m.MarkSent(ctx, slot.ID, "claimant-1"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := m.MarkSent(ctx, slot.ID, "claimant-2"); !errors.Is(err, repositories.ErrSlotAlreadySent) {
		t.Fatalf("second MarkSent err = %v, want ErrSlotAlreadySent", err)
	}

	if _, err := m.TakeAvailable(ctx); !errors.Is(err, repositories.ErrNoSlotAvailable) {
		t.Fatalf("TakeAvailable after send err = %v, want ErrNoSlotAvailable", err)
	}
	if est := m.EstimatedAvailable(ctx); est != 0 {
		t.Fatalf("EstimatedAvailable = %d, want 0", est)
	}
}

func TestCounterNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	m, _, settings := newTestManager(4)
	if _, err := m.AddSlots(ctx, "AB12CD", "alice", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	// Pretend the counter drifted low before the send is counted down.
	if err := settings.SetCounter(ctx, models.CounterAvailableCodes, 0); err != nil {
		t.Fatalf("SetCounter: %v", err)
	}

	slot, err := m.TakeAvailable(ctx)
	if err != nil {
		t.Fatalf("TakeAvailable: %v", err)
	}
	if err := m.MarkSent(ctx, slot.ID, "claimant-1"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if est := m.EstimatedAvailable(ctx); est != 0 {
		t.Fatalf("EstimatedAvailable = %d, want 0 (floored)", est)
	}
}

func TestCodeCountServedFromCache(t *testing.T) {
	ctx := context.Background()
	m, slots, _ := newTestManager(4)
	if _, err := m.AddSlots(ctx, "AB12CD", "alice", 3); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	total, err := m.CodeCount(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("CodeCount: %v", err)
	}
	if total != 3 {
		t.Fatalf("CodeCount = %d, want 3", total)
	}

	// Mutating the store behind the manager's back does not change the
	// answer; the cached entry keeps serving.
	if _, err := slots.RemoveAllForCode(ctx, "AB12CD"); err != nil {
		t.Fatalf("RemoveAllForCode: %v", err)
	}
	total, err = m.CodeCount(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("CodeCount: %v", err)
	}
	if total != 3 {
		t.Fatalf("cached CodeCount = %d, want 3", total)
	}
}

func TestCodeCountFallsBackAfterPurge(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(4)
	if _, err := m.AddSlots(ctx, "AB12CD", "alice", 2); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	// A revocation purge drops the cache entry, so the next lookup counts
	// against the store and recaches.
	if _, err := m.RemoveAllForCode(ctx, "AB12CD"); err != nil {
		t.Fatalf("RemoveAllForCode: %v", err)
	}
	total, err := m.CodeCount(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("CodeCount: %v", err)
	}
	if total != 0 {
		t.Fatalf("CodeCount after purge = %d, want 0", total)
	}
}

func TestRemoveAllForCodeResyncsCounter(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(4)
	if _, err := m.AddSlots(ctx, "AB12CD", "alice", 3); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if _, err := m.AddSlots(ctx, "ZZ99XX", "bob", 2); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	// Consume one AB12CD slot so the purge spans mixed statuses.
	slot, err := m.TakeAvailable(ctx)
	if err != nil {
		t.Fatalf("TakeAvailable: %v", err)
	}
	if err := m.MarkSent(ctx, slot.ID, "claimant-1"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	removed, err := m.RemoveAllForCode(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("RemoveAllForCode: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3 (sent slots purge too)", removed)
	}

	count, err := m.AvailableCount(ctx)
	if err != nil {
		t.Fatalf("AvailableCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("AvailableCount = %d, want 2", count)
	}
	if est := m.EstimatedAvailable(ctx); est != 2 {
		t.Fatalf("EstimatedAvailable = %d, want 2 after resync", est)
	}
}

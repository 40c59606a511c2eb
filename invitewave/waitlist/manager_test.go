package waitlist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyewave/invitewave/internal/memrepo"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

func TestAdmitAssignsTailPositions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memrepo.NewQueueStore())

	for i, id := range []string{"a", "b", "c"} {
		pos, err := m.Admit(ctx, id)
		if err != nil {
			t.Fatalf("Admit(%s): %v", id, err)
		}
		if pos != i+1 {
			t.Fatalf("Admit(%s) position = %d, want %d", id, pos, i+1)
		}
	}

	if _, err := m.Admit(ctx, "b"); !errors.Is(err, repositories.ErrAlreadyQueued) {
		t.Fatalf("duplicate Admit err = %v, want ErrAlreadyQueued", err)
	}

	size, err := m.Size(ctx)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 3 {
		t.Fatalf("Size = %d, want 3", size)
	}
}

func TestRemoveRenumbersDense(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memrepo.NewQueueStore())

	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := m.Admit(ctx, id); err != nil {
			t.Fatalf("Admit(%s): %v", id, err)
		}
	}

	if err := m.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	wantPositions := map[string]int{"a": 1, "c": 2, "d": 3}
	for id, want := range wantPositions {
		pos, err := m.Position(ctx, id)
		if err != nil {
			t.Fatalf("Position(%s): %v", id, err)
		}
		if pos != want {
			t.Errorf("Position(%s) = %d, want %d", id, pos, want)
		}
	}

	head, err := m.PeekHead(ctx)
	if err != nil {
		t.Fatalf("PeekHead: %v", err)
	}
	if head.ClaimantID != "a" {
		t.Fatalf("head = %s, want a", head.ClaimantID)
	}
}

func TestRenumberChunksLargeQueues(t *testing.T) {
	ctx := context.Background()
	store := memrepo.NewQueueStore()
	m := NewManager(store)

	total := RenumberBatchSize + 50
	for i := 0; i < total; i++ {
		if _, err := m.Admit(ctx, fmt.Sprintf("claimant-%04d", i)); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}

	// Removing the head dirties every remaining entry.
	if err := m.Remove(ctx, "claimant-0000"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if len(store.UpdateBatches) != 2 {
		t.Fatalf("update batches = %v, want two", store.UpdateBatches)
	}
	if store.UpdateBatches[0] != RenumberBatchSize {
		t.Errorf("first batch = %d, want %d", store.UpdateBatches[0], RenumberBatchSize)
	}
	if store.UpdateBatches[1] != total-1-RenumberBatchSize {
		t.Errorf("second batch = %d, want %d", store.UpdateBatches[1], total-1-RenumberBatchSize)
	}

	pos, err := m.Position(ctx, fmt.Sprintf("claimant-%04d", total-1))
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != total-1 {
		t.Fatalf("tail position = %d, want %d", pos, total-1)
	}
}

func TestRenumberSkipsCleanEntries(t *testing.T) {
	ctx := context.Background()
	store := memrepo.NewQueueStore()
	m := NewManager(store)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.Admit(ctx, id); err != nil {
			t.Fatalf("Admit(%s): %v", id, err)
		}
	}

	// Positions are already dense, so nothing is dirty.
	if err := m.Renumber(ctx); err != nil {
		t.Fatalf("Renumber: %v", err)
	}
	if len(store.UpdateBatches) != 0 {
		t.Fatalf("update batches = %v, want none", store.UpdateBatches)
	}
}

func TestPeekHeadEmpty(t *testing.T) {
	m := NewManager(memrepo.NewQueueStore())
	if _, err := m.PeekHead(context.Background()); !errors.Is(err, repositories.ErrQueueEmpty) {
		t.Fatalf("PeekHead err = %v, want ErrQueueEmpty", err)
	}
}

package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/hyewave/invitewave/internal/memrepo"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/pool"
	"github.com/hyewave/invitewave/invitewave/waitlist"
)

type fixture struct {
	scheduler *Scheduler
	leases    *memrepo.LeaseStore
	claimants *memrepo.ClaimantStore
	slots     *memrepo.PoolStore
	pool      *pool.Manager
	queue     *waitlist.Manager
	notifier  *memrepo.RecordingNotifier
}

func newFixture() *fixture {
	leases := memrepo.NewLeaseStore()
	claimants := memrepo.NewClaimantStore()
	slots := memrepo.NewPoolStore()
	poolManager := pool.NewManager(slots, memrepo.NewSettingsStore(), 4)
	queue := waitlist.NewManager(memrepo.NewQueueStore())
	notifier := memrepo.NewRecordingNotifier()

	return &fixture{
		scheduler: NewScheduler(leases, claimants, poolManager, queue, notifier,
			WithSendDelay(0), WithLeaseTTL(time.Minute)),
		leases:    leases,
		claimants: claimants,
		slots:     slots,
		pool:      poolManager,
		queue:     queue,
		notifier:  notifier,
	}
}

func (f *fixture) admit(t *testing.T, ctx context.Context, ids ...string) {
	t.Helper()
	for _, id := range ids {
		f.claimants.Put(&models.Claimant{ID: id, Status: models.ClaimantStatusWaiting})
		if _, err := f.queue.Admit(ctx, id); err != nil {
			t.Fatalf("Admit(%s): %v", id, err)
		}
	}
}

func TestRunCycleGrantsUntilEitherSideEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.admit(t, ctx, "alice", "bob", "carol")
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 2); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 2 {
		t.Fatalf("allocated = %d, want 2", allocated)
	}

	// The two heads got the code, in order.
	for _, id := range []string{"alice", "bob"} {
		c, err := f.claimants.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%s): %v", id, err)
		}
		if c.GrantedCode != "AB12CD" {
			t.Errorf("%s granted code = %q, want AB12CD", id, c.GrantedCode)
		}
		if c.Status != models.ClaimantStatusReceived {
			t.Errorf("%s status = %s, want received", id, c.Status)
		}
		if c.GrantsReceived != 1 {
			t.Errorf("%s grants received = %d, want 1", id, c.GrantsReceived)
		}
	}

	// Carol moved up to the front of a one-deep queue.
	size, err := f.queue.Size(ctx)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1 {
		t.Fatalf("queue size = %d, want 1", size)
	}
	pos, err := f.queue.Position(ctx, "carol")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != 1 {
		t.Fatalf("carol position = %d, want 1", pos)
	}

	available, err := f.pool.AvailableCount(ctx)
	if err != nil {
		t.Fatalf("AvailableCount: %v", err)
	}
	if available != 0 {
		t.Fatalf("available slots = %d, want 0", available)
	}

	if got := f.notifier.Count("CodeGranted"); got != 2 {
		t.Fatalf("CodeGranted notifications = %d, want 2", got)
	}
	if f.leases.Held(LeaseName) {
		t.Fatal("lease still held after cycle")
	}
}

func TestRunCycleSkipsWhenLeaseHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.admit(t, ctx, "alice")
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	f.leases.Hold(LeaseName, time.Minute)

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 0 {
		t.Fatalf("allocated = %d, want 0 under held lease", allocated)
	}

	// Nothing moved.
	size, _ := f.queue.Size(ctx)
	if size != 1 {
		t.Fatalf("queue size = %d, want 1", size)
	}
	available, _ := f.pool.AvailableCount(ctx)
	if available != 1 {
		t.Fatalf("available slots = %d, want 1", available)
	}
}

func TestRunCycleDequeuesAlreadyGrantedHeadWithoutBurningSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.claimants.Put(&models.Claimant{
		ID:             "alice",
		Status:         models.ClaimantStatusReceived,
		GrantedCode:    "ZZ99XX",
		GrantsReceived: 1,
	})
	if _, err := f.queue.Admit(ctx, "alice"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 0 {
		t.Fatalf("allocated = %d, want 0", allocated)
	}

	// The stale entry is gone but the slot survives for the next head.
	size, _ := f.queue.Size(ctx)
	if size != 0 {
		t.Fatalf("queue size = %d, want 0", size)
	}
	available, _ := f.pool.AvailableCount(ctx)
	if available != 1 {
		t.Fatalf("available slots = %d, want 1", available)
	}
	if got := f.notifier.Count("CodeGranted"); got != 0 {
		t.Fatalf("CodeGranted notifications = %d, want 0", got)
	}
}

func TestRunCycleNeverGrantsToBannedHead(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.claimants.Put(&models.Claimant{
		ID:     "mallory",
		Status: models.ClaimantStatusWaiting,
		Banned: true,
	})
	if _, err := f.queue.Admit(ctx, "mallory"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 0 {
		t.Fatalf("allocated = %d, want 0", allocated)
	}

	c, err := f.claimants.GetByID(ctx, "mallory")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c.GrantedCode != "" {
		t.Fatalf("banned claimant granted code = %q, want none", c.GrantedCode)
	}
	if c.GrantsReceived != 0 {
		t.Fatalf("banned claimant grants received = %d, want 0", c.GrantsReceived)
	}

	// Entry dropped silently, slot kept for a legitimate head.
	size, _ := f.queue.Size(ctx)
	if size != 0 {
		t.Fatalf("queue size = %d, want 0", size)
	}
	available, _ := f.pool.AvailableCount(ctx)
	if available != 1 {
		t.Fatalf("available slots = %d, want 1", available)
	}
	if got := f.notifier.Count("CodeGranted"); got != 0 {
		t.Fatalf("CodeGranted notifications = %d, want 0", got)
	}
}

func TestRunCycleSkipsHeadAtGrantLimitWithoutBurningSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// A reset clears the granted code but keeps the lifetime count.
	f.claimants.Put(&models.Claimant{
		ID:             "alice",
		Status:         models.ClaimantStatusWaiting,
		GrantedCode:    "",
		GrantsReceived: models.MaxGrantsPerClaimant,
	})
	if _, err := f.queue.Admit(ctx, "alice"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 0 {
		t.Fatalf("allocated = %d, want 0", allocated)
	}

	// The slot must not be consumed without a matching grant.
	available, _ := f.pool.AvailableCount(ctx)
	if available != 1 {
		t.Fatalf("available slots = %d, want 1", available)
	}
	size, _ := f.queue.Size(ctx)
	if size != 0 {
		t.Fatalf("queue size = %d, want 0", size)
	}
	if got := f.notifier.Count("CodeGranted"); got != 0 {
		t.Fatalf("CodeGranted notifications = %d, want 0", got)
	}
}

func TestRunCycleDropsOrphanEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Queue entry with no claimant row behind it.
	if _, err := f.queue.Admit(ctx, "ghost"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	f.claimants.Put(&models.Claimant{ID: "bob", Status: models.ClaimantStatusWaiting})
	if _, err := f.queue.Admit(ctx, "bob"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 1 {
		t.Fatalf("allocated = %d, want 1", allocated)
	}

	c, err := f.claimants.GetByID(ctx, "bob")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c.GrantedCode != "AB12CD" {
		t.Fatalf("bob granted code = %q, want AB12CD", c.GrantedCode)
	}
	size, _ := f.queue.Size(ctx)
	if size != 0 {
		t.Fatalf("queue size = %d, want 0", size)
	}
}

func TestRunCycleEmptyQueueIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if _, err := f.pool.AddSlots(ctx, "AB12CD", "donor", 1); err != nil {
		t.Fatalf("AddSlots: %v", err)
	}

	allocated, err := f.scheduler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if allocated != 0 {
		t.Fatalf("allocated = %d, want 0", allocated)
	}
	available, _ := f.pool.AvailableCount(ctx)
	if available != 1 {
		t.Fatalf("available slots = %d, want 1", available)
	}
}

package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyewave/invitewave/internal/memrepo"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/pool"
	"github.com/hyewave/invitewave/invitewave/waitlist"
)

type fraudFixture struct {
	manager   *Manager
	claimants *memrepo.ClaimantStore
	slots     *memrepo.PoolStore
	pool      *pool.Manager
	queue     *waitlist.Manager
	notifier  *memrepo.RecordingNotifier
}

func newFraudFixture(opts ...Option) *fraudFixture {
	claimants := memrepo.NewClaimantStore()
	slots := memrepo.NewPoolStore()
	poolManager := pool.NewManager(slots, memrepo.NewSettingsStore(), 4)
	queue := waitlist.NewManager(memrepo.NewQueueStore())
	notifier := memrepo.NewRecordingNotifier()

	return &fraudFixture{
		manager:   NewManager(claimants, slots, poolManager, queue, notifier, opts...),
		claimants: claimants,
		slots:     slots,
		pool:      poolManager,
		queue:     queue,
		notifier:  notifier,
	}
}

// seedGrant wires a granted code end to end: slots in the pool under
// submitterID, and holderIDs each holding one granted use.
func (f *fraudFixture) seedGrant(t *testing.T, ctx context.Context, code, submitterID string, holderIDs ...string) {
	t.Helper()
	_, err := f.pool.AddSlots(ctx, code, submitterID, len(holderIDs)+1)
	require.NoError(t, err)
	for _, id := range holderIDs {
		f.claimants.Put(&models.Claimant{ID: id, Status: models.ClaimantStatusNew})
		require.NoError(t, f.claimants.GrantCode(ctx, id, code))
	}
}

func TestFileComplaintFanOutAndRequeue(t *testing.T) {
	ctx := context.Background()
	f := newFraudFixture()
	f.seedGrant(t, ctx, "AB12CD", "dave", "alice", "bob")
	f.claimants.Put(&models.Claimant{ID: "dave", Status: models.ClaimantStatusNew})

	result, err := f.manager.FileComplaint(ctx, "alice", "AB12CD")
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.True(t, result.Requeued)
	assert.Equal(t, 1, result.QueuePosition)
	assert.Equal(t, 2, result.Notified, "co-grantee bob and submitter dave")

	assert.Equal(t, 1, f.notifier.Count("ComplaintCheck"))
	assert.Equal(t, "bob", f.notifier.ByMethod("ComplaintCheck")[0].Recipient)
	assert.Equal(t, 1, f.notifier.Count("SubmitterFlagged"))
	assert.Equal(t, "dave", f.notifier.ByMethod("SubmitterFlagged")[0].Recipient)
	assert.Equal(t, 1, f.notifier.Count("Requeued"))

	alice, err := f.claimants.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.GrantedCode)
	assert.Equal(t, models.ClaimantStatusWaiting, alice.Status)
	assert.Equal(t, 1, alice.ComplaintsFiled)
	assert.True(t, alice.HasReported("AB12CD"))
}

func TestFileComplaintLifetimeLimit(t *testing.T) {
	ctx := context.Background()
	f := newFraudFixture(WithMaxComplaints(3))
	f.claimants.Put(&models.Claimant{
		ID:              "alice",
		ComplaintsFiled: 3,
	})

	_, err := f.manager.FileComplaint(ctx, "alice", "AB12CD")
	assert.ErrorIs(t, err, ErrComplaintLimit)
	assert.Empty(t, f.notifier.All())
}

func TestFileComplaintCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFraudFixture(WithCooldown(10 * time.Minute))
	f.claimants.Put(&models.Claimant{
		ID:              "alice",
		ComplaintsFiled: 1,
		ReportedCodes:   []string{"ZZ99XX"},
		LastComplaintAt: time.Now().Add(-time.Minute),
	})

	_, err := f.manager.FileComplaint(ctx, "alice", "AB12CD")
	assert.ErrorIs(t, err, ErrComplaintCooldown)
}

func TestFileComplaintDuplicateSkipsFanoutAndCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFraudFixture(WithCooldown(10 * time.Minute))
	f.seedGrant(t, ctx, "AB12CD", "dave", "alice", "bob")

	// Alice reported this code a minute ago; she is still inside the
	// cooldown window but re-reporting the same code goes straight to
	// re-admission.
	f.claimants.RecordComplaint(ctx, "alice", "AB12CD")

	result, err := f.manager.FileComplaint(ctx, "alice", "AB12CD")
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.True(t, result.Requeued)
	assert.Zero(t, result.Notified)
	assert.Zero(t, f.notifier.Count("ComplaintCheck"))
	assert.Zero(t, f.notifier.Count("SubmitterFlagged"))

	alice, err := f.claimants.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.ComplaintsFiled, "duplicate still burns a filing")
}

func TestFileComplaintNoRequeueAtGrantLimit(t *testing.T) {
	ctx := context.Background()
	f := newFraudFixture()
	f.seedGrant(t, ctx, "AB12CD", "dave", "alice")
	f.claimants.Put(&models.Claimant{
		ID:             "alice",
		Status:         models.ClaimantStatusReceived,
		GrantedCode:    "AB12CD",
		GrantsReceived: models.MaxGrantsPerClaimant,
	})

	result, err := f.manager.FileComplaint(ctx, "alice", "AB12CD")
	require.NoError(t, err)

	assert.False(t, result.Requeued)
	size, err := f.queue.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestBanSubmitterPurgesAndResets(t *testing.T) {
	ctx := context.Background()
	f := newFraudFixture()

	// Dave submitted one code himself and had one donated on his behalf.
	f.seedGrant(t, ctx, "AB12CD", "dave", "alice")
	f.seedGrant(t, ctx, "ZZ99XX", DonationAlias("dave"), "bob")
	f.seedGrant(t, ctx, "GOOD01", "erin", "carol")
	f.claimants.Put(&models.Claimant{ID: "dave", Status: models.ClaimantStatusNew})

	report, err := f.manager.BanSubmitter(ctx, "dave", "counterfeit codes")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"AB12CD", "ZZ99XX"}, report.Codes)
	assert.Equal(t, int64(4), report.SlotsPurged, "both codes purged in full")
	assert.Equal(t, 2, report.VictimsReset)

	for _, code := range []string{"AB12CD", "ZZ99XX"} {
		count, err := f.slots.CountForCode(ctx, code)
		require.NoError(t, err)
		assert.Zero(t, count, "code %s should be gone", code)
	}
	count, err := f.slots.CountForCode(ctx, "GOOD01")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "unrelated code untouched")

	for _, id := range []string{"alice", "bob"} {
		c, err := f.claimants.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, c.GrantedCode)
		assert.Equal(t, models.ClaimantStatusNew, c.Status)
	}

	dave, err := f.claimants.GetByID(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, dave.Banned)
	assert.Equal(t, "counterfeit codes", dave.BanReason)

	revoked := f.notifier.ByMethod("GrantRevoked")
	recipients := make([]string, 0, len(revoked))
	for _, n := range revoked {
		recipients = append(recipients, n.Recipient)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, recipients)
}

func TestGatekeeperShadowBan(t *testing.T) {
	ctx := context.Background()
	claimants := memrepo.NewClaimantStore()
	claimants.Put(&models.Claimant{ID: "dave", Banned: true})
	claimants.Put(&models.Claimant{ID: "alice"})
	g := NewGatekeeper(claimants)

	assert.False(t, g.Allowed(ctx, "dave"))
	assert.True(t, g.Allowed(ctx, "alice"))
	assert.True(t, g.Allowed(ctx, "stranger"), "unknown claimants are allowed")
}

// Package allocation pairs waitlist heads with available pool slots. The
// whole pairing cycle runs under a store lease so that any number of bot
// processes can run the scheduler without double-granting a slot.
package allocation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
	"github.com/hyewave/invitewave/invitewave/logger"
	"github.com/hyewave/invitewave/invitewave/pool"
	"github.com/hyewave/invitewave/invitewave/services"
	"github.com/hyewave/invitewave/invitewave/waitlist"
)

const (
	// LeaseName guards the allocation cycle across processes.
	LeaseName = "queue_processor"

	defaultInterval  = time.Minute
	defaultLeaseTTL  = 60 * time.Second
	defaultSendDelay = 500 * time.Millisecond
)

type Scheduler struct {
	leases    repositories.LeaseRepository
	claimants repositories.ClaimantRepository
	pool      *pool.Manager
	queue     *waitlist.Manager
	notifier  services.Notifier

	interval  time.Duration
	leaseTTL  time.Duration
	sendDelay time.Duration

	shutdown chan struct{}
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func WithLeaseTTL(d time.Duration) Option {
	return func(s *Scheduler) { s.leaseTTL = d }
}

func WithSendDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.sendDelay = d }
}

func NewScheduler(
	leases repositories.LeaseRepository,
	claimants repositories.ClaimantRepository,
	poolManager *pool.Manager,
	queue *waitlist.Manager,
	notifier services.Notifier,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		leases:    leases,
		claimants: claimants,
		pool:      poolManager,
		queue:     queue,
		notifier:  notifier,
		interval:  defaultInterval,
		leaseTTL:  defaultLeaseTTL,
		sendDelay: defaultSendDelay,
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the periodic allocation trigger.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				start := time.Now()
				allocated, err := s.RunCycle(ctx)
				logger.LogCycle(allocated, time.Since(start), err)
			case <-ctx.Done():
				return
			case <-s.shutdown:
				return
			}
		}
	}()
}

// Stop halts the periodic trigger. A cycle already in flight finishes.
func (s *Scheduler) Stop() {
	close(s.shutdown)
}

// RunCycle executes one allocation pass and returns the number of slots
// granted. A held lease is contention, not an error: the cycle aborts
// silently and the next tick retries.
func (s *Scheduler) RunCycle(ctx context.Context) (int, error) {
	acquired, err := s.leases.Acquire(ctx, LeaseName, s.leaseTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		slog.Debug("Allocation lease held elsewhere, skipping cycle",
			slog.String("type", "sched"))
		return 0, nil
	}
	defer func() {
		if err := s.leases.Release(ctx, LeaseName); err != nil {
			slog.Warn("Failed to release allocation lease",
				slog.String("type", "sched"),
				slog.Any("error", err))
		}
	}()

	allocated := 0
	for {
		head, err := s.queue.PeekHead(ctx)
		if errors.Is(err, repositories.ErrQueueEmpty) {
			return allocated, nil
		}
		if err != nil {
			return allocated, err
		}

		slot, err := s.pool.TakeAvailable(ctx)
		if errors.Is(err, repositories.ErrNoSlotAvailable) {
			return allocated, nil
		}
		if err != nil {
			return allocated, err
		}

		granted, err := s.allocate(ctx, head, slot)
		if err != nil {
			return allocated, err
		}
		if !granted {
			continue
		}
		allocated++

		// Pace outbound sends.
		select {
		case <-time.After(s.sendDelay):
		case <-ctx.Done():
			return allocated, ctx.Err()
		}
	}
}

// allocate grants one slot to the head claimant. Returns false when the
// head was dequeued without consuming the slot: since TakeAvailable only
// reads and MarkSent is what consumes, the untouched slot simply stays
// available for the next iteration.
func (s *Scheduler) allocate(ctx context.Context, head *models.QueueEntry, slot *models.PoolSlot) (bool, error) {
	claimant, err := s.claimants.GetByID(ctx, head.ClaimantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			// Orphan entry; drop it and keep going.
			return false, s.queue.Remove(ctx, head.ClaimantID)
		}
		return false, err
	}

	// Banned claimants never receive a real slot. Their queue entry is
	// dropped quietly so the queue keeps moving.
	if claimant.Banned {
		slog.Info("Banned head claimant, dequeueing",
			slog.String("type", "sched"),
			slog.String("claimant_id", claimant.ID))
		return false, s.queue.Remove(ctx, head.ClaimantID)
	}

	// Raced with a previous cycle or a manual grant: the claimant already
	// holds a code, so just clear the queue entry. Same for claimants whose
	// grant allowance is exhausted (a reset clears granted_code but the
	// lifetime count stands).
	if claimant.GrantedCode != "" || claimant.GrantsReceived >= models.MaxGrantsPerClaimant {
		slog.Info("Head claimant not eligible for a grant, dequeueing",
			slog.String("type", "sched"),
			slog.String("claimant_id", claimant.ID),
			slog.Int("grants_received", claimant.GrantsReceived))
		return false, s.queue.Remove(ctx, head.ClaimantID)
	}

	if err := s.queue.Remove(ctx, head.ClaimantID); err != nil {
		return false, err
	}

	// Grant before marking the slot sent so a failed grant leaves the slot
	// available for the next head.
	if err := s.claimants.GrantCode(ctx, claimant.ID, slot.Code); err != nil {
		if errors.Is(err, repositories.ErrGrantLimitReached) {
			slog.Warn("Claimant hit grant limit mid-cycle",
				slog.String("type", "sched"),
				slog.String("claimant_id", claimant.ID))
			return false, nil
		}
		return false, err
	}

	if err := s.pool.MarkSent(ctx, slot.ID, claimant.ID); err != nil {
		return false, err
	}

	if err := s.notifier.CodeGranted(ctx, claimant.ID, slot.Code); err != nil {
		// Notification is at-least-once; the grant itself stands.
		slog.Warn("Failed to notify granted claimant",
			slog.String("type", "sched"),
			slog.String("claimant_id", claimant.ID),
			slog.Any("error", err))
	}
	return true, nil
}

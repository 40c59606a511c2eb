package allocation

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/repositories"
	"github.com/hyewave/invitewave/invitewave/services"
)

// Reminder day-marks: a claimant gets one nudge when their wait crosses
// each mark.
var reminderMarks = []time.Duration{
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
}

// ReminderNotifier periodically scans the waitlist and nudges claimants
// whose wait crossed a day-mark since the previous scan.
type ReminderNotifier struct {
	queue    repositories.QueueRepository
	notifier services.Notifier
	interval time.Duration
	shutdown chan struct{}
}

func NewReminderNotifier(queue repositories.QueueRepository, notifier services.Notifier, interval time.Duration) *ReminderNotifier {
	return &ReminderNotifier{
		queue:    queue,
		notifier: notifier,
		interval: interval,
		shutdown: make(chan struct{}),
	}
}

func (r *ReminderNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.scan(ctx); err != nil {
					slog.Error("Waitlist reminder scan failed",
						slog.String("type", "sched"),
						slog.Any("error", err))
				}
			case <-ctx.Done():
				return
			case <-r.shutdown:
				return
			}
		}
	}()
}

func (r *ReminderNotifier) Stop() {
	close(r.shutdown)
}

func (r *ReminderNotifier) scan(ctx context.Context) error {
	entries, err := r.queue.All(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, entry := range entries {
		waited := now.Sub(entry.JoinedAt)
		for _, mark := range reminderMarks {
			// Crossed this mark within the last interval.
			if waited >= mark && waited < mark+r.interval {
				if err := r.notifier.WaitlistReminder(ctx, entry.ClaimantID, entry.Position); err != nil {
					slog.Warn("Failed to send waitlist reminder",
						slog.String("type", "sched"),
						slog.String("claimant_id", entry.ClaimantID),
						slog.Any("error", err))
				}
				break
			}
		}
	}
	return nil
}

// Package fraud handles complaint intake, code revocation and the
// shadow-ban guard.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
	"github.com/hyewave/invitewave/invitewave/pool"
	"github.com/hyewave/invitewave/invitewave/services"
	"github.com/hyewave/invitewave/invitewave/waitlist"
)

var (
	// ErrComplaintLimit is returned when a claimant exhausted their
	// lifetime complaint allowance.
	ErrComplaintLimit = errors.New("complaint limit reached")
	// ErrComplaintCooldown is returned when a fresh complaint lands
	// inside the cooldown window.
	ErrComplaintCooldown = errors.New("complaint cooldown active")
)

const (
	defaultMaxComplaints = 3
	defaultCooldown      = 10 * time.Minute
)

// DonationAlias returns the synthetic submitter identity used when an
// admin donates codes on behalf of an account.
func DonationAlias(id string) string {
	return "donation:" + id
}

type Manager struct {
	claimants repositories.ClaimantRepository
	poolRepo  repositories.PoolRepository
	pool      *pool.Manager
	queue     *waitlist.Manager
	notifier  services.Notifier

	maxComplaints int
	cooldown      time.Duration
	// systemIdentities are synthetic submitter ids that never receive
	// complaint notifications.
	systemIdentities map[string]bool
}

type Option func(*Manager)

func WithMaxComplaints(n int) Option {
	return func(m *Manager) { m.maxComplaints = n }
}

func WithCooldown(d time.Duration) Option {
	return func(m *Manager) { m.cooldown = d }
}

func NewManager(
	claimants repositories.ClaimantRepository,
	poolRepo repositories.PoolRepository,
	poolManager *pool.Manager,
	queue *waitlist.Manager,
	notifier services.Notifier,
	opts ...Option,
) *Manager {
	m := &Manager{
		claimants:        claimants,
		poolRepo:         poolRepo,
		pool:             poolManager,
		queue:            queue,
		notifier:         notifier,
		maxComplaints:    defaultMaxComplaints,
		cooldown:         defaultCooldown,
		systemIdentities: map[string]bool{models.SubmitterDonation: true, "system": true, "admin": true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ComplaintResult reports what a complaint did.
type ComplaintResult struct {
	Duplicate     bool
	Requeued      bool
	QueuePosition int
	Notified      int
}

// FileComplaint records a complaint against code by claimantID.
//
// Rate limits: maxComplaints lifetime filings, one filing per cooldown
// window. A duplicate complaint against a code the claimant already
// reported skips the fan-out and the cooldown and goes straight to
// re-admission.
func (m *Manager) FileComplaint(ctx context.Context, claimantID, code string) (*ComplaintResult, error) {
	claimant, err := m.claimants.GetByID(ctx, claimantID)
	if err != nil {
		return nil, err
	}

	if claimant.ComplaintsFiled >= m.maxComplaints {
		return nil, ErrComplaintLimit
	}

	duplicate := claimant.HasReported(code)
	if !duplicate && !claimant.LastComplaintAt.IsZero() && time.Since(claimant.LastComplaintAt) < m.cooldown {
		return nil, ErrComplaintCooldown
	}

	if err := m.claimants.RecordComplaint(ctx, claimantID, code); err != nil {
		return nil, err
	}

	// Reload so the requeue write-back carries the complaint bookkeeping
	// just recorded.
	claimant, err = m.claimants.GetByID(ctx, claimantID)
	if err != nil {
		return nil, err
	}

	result := &ComplaintResult{Duplicate: duplicate}

	if !duplicate {
		notifications, err := m.complaintNotifications(ctx, claimantID, code)
		if err != nil {
			return nil, err
		}
		result.Notified = m.send(ctx, notifications)
	}

	if claimant.GrantsReceived < models.MaxGrantsPerClaimant {
		position, err := m.requeue(ctx, claimant)
		if err != nil && !errors.Is(err, repositories.ErrAlreadyQueued) {
			return nil, err
		}
		if err == nil {
			result.Requeued = true
			result.QueuePosition = position
		}
	}

	return result, nil
}

func (m *Manager) complaintNotifications(ctx context.Context, claimantID, code string) ([]Notification, error) {
	grantees, err := m.claimants.FindByGrantedCode(ctx, code)
	if err != nil {
		return nil, err
	}
	granteeIDs := make([]string, 0, len(grantees))
	for _, g := range grantees {
		granteeIDs = append(granteeIDs, g.ID)
	}

	submitter, err := m.poolRepo.SubmitterOf(ctx, code)
	if err != nil {
		return nil, err
	}

	return ComplaintFanout(ComplaintSnapshot{
		Code:        code,
		Complainant: claimantID,
		Submitter:   submitter,
		Grantees:    granteeIDs,
	}, m.systemIdentities), nil
}

func (m *Manager) requeue(ctx context.Context, claimant *models.Claimant) (int, error) {
	claimant.GrantedCode = ""
	claimant.Status = models.ClaimantStatusWaiting
	if err := m.claimants.Update(ctx, claimant); err != nil {
		return 0, err
	}

	position, err := m.queue.Admit(ctx, claimant.ID)
	if err != nil {
		return 0, err
	}

	if err := m.notifier.Requeued(ctx, claimant.ID, position); err != nil {
		slog.Warn("Failed to notify requeued claimant",
			slog.String("claimant_id", claimant.ID),
			slog.Any("error", err))
	}
	return position, nil
}

func (m *Manager) send(ctx context.Context, notifications []Notification) int {
	sent := 0
	for _, n := range notifications {
		var err error
		switch n.Kind {
		case KindComplaintCheck:
			err = m.notifier.ComplaintCheck(ctx, n.Recipient, n.Code)
		case KindSubmitterFlagged:
			err = m.notifier.SubmitterFlagged(ctx, n.Recipient, n.Code)
		case KindGrantRevoked:
			err = m.notifier.GrantRevoked(ctx, n.Recipient)
		}
		if err != nil {
			slog.Warn("Fan-out notification failed",
				slog.String("recipient", n.Recipient),
				slog.String("code", n.Code),
				slog.Any("error", err))
			continue
		}
		sent++
	}
	return sent
}

// BanReport summarizes a ban fan-out.
type BanReport struct {
	Codes        []string
	SlotsPurged  int64
	VictimsReset int
}

// BanSubmitter bans a claimant as a counterfeit-code source. Every code
// they ever submitted, under their own identity or the donation alias, is
// purged from the pool in full; everyone holding one of those codes is
// reset so they can rejoin the queue. Failures here are operator-grade:
// a partial purge leaves counterfeit slots allocatable.
func (m *Manager) BanSubmitter(ctx context.Context, claimantID, reason string) (*BanReport, error) {
	codes, err := m.poolRepo.CodesBySubmitters(ctx, []string{claimantID, DonationAlias(claimantID)})
	if err != nil {
		return nil, m.escalate(ctx, claimantID, fmt.Errorf("collecting codes: %w", err))
	}

	report := &BanReport{Codes: codes}

	for _, code := range codes {
		removed, err := m.pool.RemoveAllForCode(ctx, code)
		if err != nil {
			return nil, m.escalate(ctx, claimantID, fmt.Errorf("purging code %s: %w", code, err))
		}
		report.SlotsPurged += removed
	}

	if err := m.claimants.Ban(ctx, claimantID, reason); err != nil {
		return nil, m.escalate(ctx, claimantID, fmt.Errorf("marking banned: %w", err))
	}

	victims, err := m.claimants.ResetByCodes(ctx, codes)
	if err != nil {
		return nil, m.escalate(ctx, claimantID, fmt.Errorf("resetting grantees: %w", err))
	}
	report.VictimsReset = len(victims)

	victimCodes := make(map[string]string, len(victims))
	for _, v := range victims {
		victimCodes[v.ID] = v.GrantedCode
	}
	m.send(ctx, BanFanout(BanSnapshot{
		BannedID: claimantID,
		Codes:    codes,
		Victims:  victimCodes,
	}))

	slog.Info("Submitter banned",
		slog.String("claimant_id", claimantID),
		slog.String("reason", reason),
		slog.Int("codes_purged", len(codes)),
		slog.Int64("slots_purged", report.SlotsPurged),
		slog.Int("victims_reset", report.VictimsReset))
	return report, nil
}

func (m *Manager) escalate(ctx context.Context, claimantID string, err error) error {
	msg := fmt.Sprintf("Ban fan-out failed for %s: %v; pool may still hold counterfeit slots", claimantID, err)
	if alertErr := m.notifier.OperatorAlert(ctx, msg); alertErr != nil {
		slog.Error("Operator alert delivery failed",
			slog.String("type", "error"),
			slog.Any("error", alertErr))
	}
	return err
}

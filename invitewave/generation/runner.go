package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/repositories"
	"github.com/hyewave/invitewave/invitewave/services"
)

var (
	// ErrJobTimeout marks a job that never reached a terminal provider
	// state inside the wall-clock window.
	ErrJobTimeout = errors.New("generation job timed out")
	// ErrRefundFailed wraps a failed compensation: money is at risk and
	// an operator must step in.
	ErrRefundFailed = errors.New("refund failed after generation failure")
)

const (
	defaultPollInterval = 10 * time.Second
	defaultJobTimeout   = 15 * time.Minute
)

// progressMarks are the coarse progress thresholds surfaced to the payer.
var progressMarks = []int{25, 50, 75}

// Job is one paid generation request.
type Job struct {
	TaskID        string
	TransactionID string
	PayerID       string
	ChargeRef     string
	Model         string
	Prompt        string
	// EnhancedPrompt, when set, is tried first; a non-rejection failure
	// falls back to the original Prompt once.
	EnhancedPrompt string
	Duration       int
	Size           string
}

type Runner struct {
	provider     Provider
	transactions repositories.TransactionRepository
	store        services.ArtifactStore
	notifier     services.Notifier
	biller       services.Biller

	pollInterval time.Duration
	jobTimeout   time.Duration
}

type RunnerOption func(*Runner)

func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.pollInterval = d }
}

func WithJobTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.jobTimeout = d }
}

func NewRunner(
	provider Provider,
	transactions repositories.TransactionRepository,
	store services.ArtifactStore,
	notifier services.Notifier,
	biller services.Biller,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		provider:     provider,
		transactions: transactions,
		store:        store,
		notifier:     notifier,
		biller:       biller,
		pollInterval: defaultPollInterval,
		jobTimeout:   defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one job to completion: create, poll to terminal, download
// and deliver; on failure retry once with the fallback prompt when policy
// allows, then refund. The returned error is nil when the payer ended up
// with either an artifact or their money.
func (r *Runner) Run(ctx context.Context, job Job) error {
	prompt := job.Prompt
	usedEnhanced := false
	if job.EnhancedPrompt != "" {
		prompt = job.EnhancedPrompt
		usedEnhanced = true
	}

	state, err := r.attempt(ctx, job, prompt)
	if err != nil && usedEnhanced && state != StateRejected {
		slog.Info("Retrying generation with original prompt",
			slog.String("type", "task"),
			slog.String("task_id", job.TaskID),
			slog.Any("first_error", err))
		state, err = r.attempt(ctx, job, job.Prompt)
	}
	if err == nil {
		return nil
	}

	return r.refund(ctx, job, err)
}

// attempt runs one create/poll/deliver pass and reports the terminal
// provider state it observed (zero value when it never got one).
func (r *Runner) attempt(ctx context.Context, job Job, prompt string) (JobState, error) {
	jobID, err := r.provider.Create(ctx, CreateRequest{
		Model:    job.Model,
		Prompt:   prompt,
		Duration: job.Duration,
		Size:     job.Size,
	})
	if err != nil {
		return "", fmt.Errorf("create failed: %w", err)
	}

	status, err := r.pollUntilTerminal(ctx, job, jobID)
	if err != nil {
		return status.State, err
	}

	switch status.State {
	case StateSucceeded:
	case StateRejected:
		return StateRejected, fmt.Errorf("provider rejected job %s (content policy)", jobID)
	default:
		return status.State, fmt.Errorf("provider job %s ended in state %s", jobID, status.State)
	}

	data, err := r.provider.Download(ctx, jobID)
	if err != nil {
		return StateSucceeded, fmt.Errorf("download failed: %w", err)
	}

	return StateSucceeded, r.deliver(ctx, job, jobID, data)
}

func (r *Runner) pollUntilTerminal(ctx context.Context, job Job, jobID string) (JobStatus, error) {
	deadline := time.Now().Add(r.jobTimeout)
	nextMark := 0

	for {
		if time.Now().After(deadline) {
			return JobStatus{}, fmt.Errorf("%w: job %s after %s", ErrJobTimeout, jobID, r.jobTimeout)
		}

		select {
		case <-time.After(r.pollInterval):
		case <-ctx.Done():
			return JobStatus{}, ctx.Err()
		}

		status, err := r.provider.Poll(ctx, jobID)
		if err != nil {
			// Transient poll errors ride out the timeout window.
			slog.Warn("Poll failed",
				slog.String("type", "task"),
				slog.String("job_id", jobID),
				slog.Any("error", err))
			continue
		}

		for nextMark < len(progressMarks) && status.Progress >= progressMarks[nextMark] {
			if err := r.notifier.Progress(ctx, job.PayerID, progressMarks[nextMark]); err != nil {
				slog.Warn("Progress notification failed",
					slog.String("type", "task"),
					slog.String("task_id", job.TaskID),
					slog.Any("error", err))
			}
			nextMark++
		}

		if status.State.Terminal() {
			return status, nil
		}
	}
}

func (r *Runner) deliver(ctx context.Context, job Job, jobID string, data []byte) error {
	filename := fmt.Sprintf("%s.mp4", job.TaskID)

	if _, err := r.store.PutArtifact(ctx, filename, data, "video/mp4"); err != nil {
		// Storage is a convenience copy; chat delivery decides success.
		slog.Warn("Artifact upload to storage failed",
			slog.String("type", "task"),
			slog.String("task_id", job.TaskID),
			slog.Any("error", err))
	}

	if err := r.transactions.AppendArtifact(ctx, job.TransactionID, jobID); err != nil {
		return fmt.Errorf("recording artifact: %w", err)
	}

	if err := r.notifier.Document(ctx, job.PayerID, filename, data); err != nil {
		return fmt.Errorf("delivering artifact: %w", err)
	}

	if err := r.transactions.MarkDelivered(ctx, job.TransactionID); err != nil {
		return fmt.Errorf("marking delivered: %w", err)
	}
	return nil
}

// refund compensates a finally-failed job. A failed refund is a distinct,
// higher-severity condition: the job failure was handled, the money was
// not.
func (r *Runner) refund(ctx context.Context, job Job, cause error) error {
	slog.Error("Generation failed, refunding",
		slog.String("type", "task"),
		slog.String("task_id", job.TaskID),
		slog.String("payer_id", job.PayerID),
		slog.Any("error", cause))

	if err := r.biller.Refund(ctx, job.PayerID, job.ChargeRef); err != nil {
		msg := fmt.Sprintf("Refund FAILED for payer %s charge %s: %v (job failure: %v)",
			job.PayerID, job.ChargeRef, err, cause)
		if alertErr := r.notifier.OperatorAlert(ctx, msg); alertErr != nil {
			slog.Error("Operator alert delivery failed",
				slog.String("type", "error"),
				slog.Any("error", alertErr))
		}
		return fmt.Errorf("%w: %v (after: %v)", ErrRefundFailed, err, cause)
	}

	if err := r.transactions.MarkRefunded(ctx, job.TransactionID); err != nil {
		return fmt.Errorf("refund sent but not recorded for %s: %w", job.TransactionID, err)
	}
	return nil
}

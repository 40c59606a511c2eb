package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/generation"
)

// PaymentEvent carries the already-extracted metadata of a confirmed
// payment. The platform-specific payload never reaches the core; whatever
// webhook or update listener sits in front of the bot translates into
// this shape.
type PaymentEvent struct {
	PayerID         string
	ChargeReference string
	StarsPaid       int
	Mode            string
	Prompt          string
	EnhancedPrompt  string
	DurationSeconds int
	Size            string
}

// PaymentHandler turns confirmed payments into generation work. The
// transaction row is written first so that a crash between confirmation
// and enqueue still leaves an auditable, manually refundable record.
type PaymentHandler struct {
	bot *invitewave.Bot
}

func NewPaymentHandler(b *invitewave.Bot) *PaymentHandler {
	return &PaymentHandler{bot: b}
}

func (h *PaymentHandler) OnPaymentConfirmed(ctx context.Context, event PaymentEvent) error {
	transaction := &models.Transaction{
		ID:              uuid.NewString(),
		PayerID:         event.PayerID,
		Type:            "generation",
		Mode:            event.Mode,
		StarsPaid:       event.StarsPaid,
		ChargeReference: event.ChargeReference,
		Status:          models.TransactionStatusPaid,
	}
	if err := h.bot.TransactionRepository.Create(ctx, transaction); err != nil {
		return fmt.Errorf("recording payment: %w", err)
	}

	job := generation.Job{
		TaskID:         uuid.NewString(),
		TransactionID:  transaction.ID,
		PayerID:        event.PayerID,
		ChargeRef:      event.ChargeReference,
		Model:          h.bot.Cfg.Provider.Model,
		Prompt:         event.Prompt,
		EnhancedPrompt: event.EnhancedPrompt,
		Duration:       event.DurationSeconds,
		Size:           event.Size,
	}

	if err := h.bot.TaskQueue.Enqueue(job); err != nil {
		// The payment is recorded; alert so an operator can refund or
		// replay by hand.
		msg := fmt.Sprintf("Paid job could not be queued for payer %s (charge %s): %v",
			event.PayerID, event.ChargeReference, err)
		if alertErr := h.bot.Notifier.OperatorAlert(ctx, msg); alertErr != nil {
			slog.Error("Operator alert delivery failed",
				slog.String("type", "error"),
				slog.Any("error", alertErr))
		}
		return err
	}

	slog.Info("Generation job queued",
		slog.String("type", "task"),
		slog.String("task_id", job.TaskID),
		slog.String("payer_id", event.PayerID),
		slog.Int("pending", h.bot.TaskQueue.Pending()))
	return nil
}

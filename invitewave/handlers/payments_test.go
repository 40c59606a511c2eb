package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyewave/invitewave/internal/memrepo"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/generation"
)

func newPaymentFixture(backlog int) (*PaymentHandler, *memrepo.TransactionStore, *memrepo.RecordingNotifier) {
	transactions := memrepo.NewTransactionStore()
	notifier := memrepo.NewRecordingNotifier()
	b := &invitewave.Bot{
		Cfg: invitewave.Config{
			Provider: invitewave.ProviderConfig{Model: "gen-1"},
		},
		TransactionRepository: transactions,
		TaskQueue:             generation.NewTaskQueue(nil, 1, backlog),
		Notifier:              notifier,
	}
	return NewPaymentHandler(b), transactions, notifier
}

func testEvent() PaymentEvent {
	return PaymentEvent{
		PayerID:         "payer-1",
		ChargeReference: "charge-1",
		StarsPaid:       50,
		Mode:            "fast",
		Prompt:          "a red fox",
		DurationSeconds: 5,
		Size:            "720x1280",
	}
}

func TestOnPaymentConfirmedRecordsThenQueues(t *testing.T) {
	handler, transactions, _ := newPaymentFixture(4)

	require.NoError(t, handler.OnPaymentConfirmed(context.Background(), testEvent()))

	all := transactions.All()
	require.Len(t, all, 1)
	tx := all[0]
	assert.Equal(t, "payer-1", tx.PayerID)
	assert.Equal(t, "charge-1", tx.ChargeReference)
	assert.Equal(t, 50, tx.StarsPaid)
	assert.Equal(t, models.TransactionStatusPaid, tx.Status)
	assert.Equal(t, 1, handler.bot.TaskQueue.Pending())
}

func TestOnPaymentConfirmedFullQueueKeepsAuditRow(t *testing.T) {
	handler, transactions, notifier := newPaymentFixture(1)

	require.NoError(t, handler.OnPaymentConfirmed(context.Background(), testEvent()))
	err := handler.OnPaymentConfirmed(context.Background(), testEvent())
	require.ErrorIs(t, err, generation.ErrQueueFull)

	// The second payment is still on record for a manual refund.
	assert.Len(t, transactions.All(), 2)
	assert.Equal(t, 1, notifier.Count("OperatorAlert"))
}

func TestWebhookHandleConfirmed(t *testing.T) {
	handler, transactions, _ := newPaymentFixture(4)
	webhook := NewPaymentWebhook(handler, "127.0.0.1:0", "s3cret")

	post := func(secret string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/confirmed", bytes.NewReader(body))
		if secret != "" {
			req.Header.Set("X-Webhook-Secret", secret)
		}
		rec := httptest.NewRecorder()
		webhook.handleConfirmed(rec, req)
		return rec
	}

	payload, err := json.Marshal(testEvent())
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, post("", payload).Code)
	assert.Equal(t, http.StatusForbidden, post("wrong", payload).Code)
	assert.Equal(t, http.StatusBadRequest, post("s3cret", []byte("{not json")).Code)
	assert.Equal(t, http.StatusBadRequest, post("s3cret", []byte(`{"PayerID":""}`)).Code)
	assert.Empty(t, transactions.All())

	assert.Equal(t, http.StatusAccepted, post("s3cret", payload).Code)
	assert.Len(t, transactions.All(), 1)
}

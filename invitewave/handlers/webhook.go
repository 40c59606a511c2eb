package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// PaymentWebhook exposes the payment-confirmed intake over HTTP. The
// payment processor (or the platform-update bridge) POSTs the extracted
// event here after its own signature checks.
type PaymentWebhook struct {
	payments *PaymentHandler
	secret   string
	server   *http.Server
}

func NewPaymentWebhook(payments *PaymentHandler, addr, secret string) *PaymentWebhook {
	w := &PaymentWebhook{payments: payments, secret: secret}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments/confirmed", w.handleConfirmed)
	w.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return w
}

func (w *PaymentWebhook) Start() {
	go func() {
		slog.Info("Payment webhook listening",
			slog.String("type", "sys"),
			slog.String("addr", w.server.Addr))
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Payment webhook server failed",
				slog.String("type", "error"),
				slog.Any("error", err))
		}
	}()
}

func (w *PaymentWebhook) Stop(ctx context.Context) error {
	return w.server.Shutdown(ctx)
}

func (w *PaymentWebhook) handleConfirmed(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" && r.Header.Get("X-Webhook-Secret") != w.secret {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}

	var event PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(rw, "bad payload", http.StatusBadRequest)
		return
	}
	if event.PayerID == "" || event.ChargeReference == "" {
		http.Error(rw, "missing payer or charge reference", http.StatusBadRequest)
		return
	}

	if err := w.payments.OnPaymentConfirmed(r.Context(), event); err != nil {
		http.Error(rw, "failed to accept payment", http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(http.StatusAccepted)
}

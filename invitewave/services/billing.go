package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// Biller issues refunds against the chat platform's payment API given the
// charge reference captured at payment confirmation.
type Biller interface {
	Refund(ctx context.Context, payerID, chargeReference string) error
}

type billingClient struct {
	http    *retryablehttp.Client
	baseURL string
	token   string
}

func NewBillingClient(baseURL, token string) Biller {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &billingClient{
		http:    client,
		baseURL: baseURL,
		token:   token,
	}
}

func (b *billingClient) Refund(ctx context.Context, payerID, chargeReference string) error {
	payload, err := json.Marshal(map[string]string{
		"user_id":   payerID,
		"charge_id": chargeReference,
	})
	if err != nil {
		return fmt.Errorf("failed to encode refund request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/refund", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("refund call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refund rejected with status %d for charge %s", resp.StatusCode, chargeReference)
	}
	return nil
}

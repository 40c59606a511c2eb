package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

type JobState string

const (
	StateQueued     JobState = "queued"
	StateInProgress JobState = "in_progress"
	StateSucceeded  JobState = "succeeded"
	StateFailed     JobState = "failed"
	// StateRejected is a content-policy rejection. It is not transient:
	// the fallback retry is skipped and the payment refunded directly.
	StateRejected JobState = "rejected"
)

// Terminal reports whether the state ends polling.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateRejected
}

type JobStatus struct {
	State    JobState `json:"status"`
	Progress int      `json:"progress"`
}

type CreateRequest struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Duration int    `json:"seconds"`
	Size     string `json:"size"`
}

// Provider is the upstream generation API.
type Provider interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
	Poll(ctx context.Context, jobID string) (JobStatus, error)
	Download(ctx context.Context, jobID string) ([]byte, error)
}

type httpProvider struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
}

func NewHTTPProvider(baseURL, apiKey string) Provider {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &httpProvider{
		http:    client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (p *httpProvider) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned %d for %s: %s", resp.StatusCode, path, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

func (p *httpProvider) Create(ctx context.Context, req CreateRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode create request: %w", err)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := p.do(ctx, http.MethodPost, "/videos", payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (p *httpProvider) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	err := p.do(ctx, http.MethodGet, "/videos/"+jobID, nil, &status)
	return status, err
}

func (p *httpProvider) Download(ctx context.Context, jobID string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/videos/"+jobID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d for job %s", resp.StatusCode, jobID)
	}
	return io.ReadAll(resp.Body)
}

// Package bank is the client for the bank-payment collaborator that executes
// payout batches.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// Client submits payout batches.
type Client interface {
	// SubmitBatch sends one batch and returns the per-investor results.
	// An error means the batch as a whole was not accepted.
	SubmitBatch(ctx context.Context, reference string, instructions []model.PayoutInstruction) (model.BatchSubmission, error)
}

// HTTPClient talks to the bank's payout API. Outbound calls share one rate
// limiter so retries from several operators cannot exceed the bank's quota.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Entry
}

// NewHTTPClient creates a bank client. ratePerSecond <= 0 disables limiting.
func NewHTTPClient(baseURL, apiKey string, ratePerSecond float64, timeout time.Duration, log *logrus.Entry) *HTTPClient {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		log:        log,
	}
}

type batchRequest struct {
	Reference string                    `json:"reference"`
	Payouts   []model.PayoutInstruction `json:"payouts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SubmitBatch posts the batch to /v1/payouts/batch.
func (c *HTTPClient) SubmitBatch(ctx context.Context, reference string, instructions []model.PayoutInstruction) (model.BatchSubmission, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.BatchSubmission{}, fmt.Errorf("bank rate limiter: %w", err)
	}

	body, err := json.Marshal(batchRequest{Reference: reference, Payouts: instructions})
	if err != nil {
		return model.BatchSubmission{}, fmt.Errorf("failed to encode payout batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payouts/batch", bytes.NewReader(body))
	if err != nil {
		return model.BatchSubmission{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.BatchSubmission{}, fmt.Errorf("bank batch request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.BatchSubmission{}, fmt.Errorf("failed to read bank response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"reference": reference,
		"payouts":   len(instructions),
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	}).Debug("bank batch submitted")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return model.BatchSubmission{}, fmt.Errorf("bank rejected batch (%d): %s", resp.StatusCode, e.Error)
		}
		return model.BatchSubmission{}, fmt.Errorf("bank rejected batch: status %d", resp.StatusCode)
	}

	var submission model.BatchSubmission
	if err := json.Unmarshal(data, &submission); err != nil {
		return model.BatchSubmission{}, fmt.Errorf("failed to parse bank response: %w", err)
	}
	return submission, nil
}

// Package esign is the client for the e-signature provider that collects
// shareholder agreement signatures.
package esign

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// Client starts signing sessions and authenticates provider callbacks.
type Client interface {
	InitiateSigning(ctx context.Context, documentURL string, signer model.SignerDetails, metadata map[string]string) (model.SigningSession, error)
	VerifyCallback(payload []byte, signature string) (model.SigningCallback, error)
}

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	baseURL       string
	apiKey        string
	webhookSecret []byte
	httpClient    *http.Client
}

// NewHTTPClient creates an e-sign client.
func NewHTTPClient(baseURL, apiKey, webhookSecret string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		webhookSecret: []byte(webhookSecret),
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type initiateRequest struct {
	DocumentURL string              `json:"documentUrl"`
	Signer      model.SignerDetails `json:"signer"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
}

// InitiateSigning asks the provider to collect signer's signature on the document.
func (c *HTTPClient) InitiateSigning(ctx context.Context, documentURL string, signer model.SignerDetails, metadata map[string]string) (model.SigningSession, error) {
	body, err := json.Marshal(initiateRequest{DocumentURL: documentURL, Signer: signer, Metadata: metadata})
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("failed to encode signing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/signing-requests", bytes.NewReader(body))
	if err != nil {
		return model.SigningSession{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("e-sign request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("failed to read e-sign response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.SigningSession{}, fmt.Errorf("e-sign provider returned status %d", resp.StatusCode)
	}

	var session model.SigningSession
	if err := json.Unmarshal(data, &session); err != nil {
		return model.SigningSession{}, fmt.Errorf("failed to parse e-sign response: %w", err)
	}
	if session.RequestID == "" {
		return model.SigningSession{}, fmt.Errorf("e-sign response has no request ID")
	}
	return session, nil
}

// VerifyCallback checks the hex HMAC-SHA256 signature of payload and decodes it.
// Returns ErrInvalidSignature when the signature does not match.
func (c *HTTPClient) VerifyCallback(payload []byte, signature string) (model.SigningCallback, error) {
	return VerifyCallback(c.webhookSecret, payload, signature)
}

// VerifyCallback is the keyed verification used by HTTPClient, exported for
// providers whose callbacks arrive on another channel.
func VerifyCallback(secret, payload []byte, signature string) (model.SigningCallback, error) {
	if len(secret) == 0 {
		return model.SigningCallback{}, fmt.Errorf("%w: webhook secret not configured", apperrors.ErrInvalidSignature)
	}

	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil || !hmac.Equal(got, Sign(secret, payload)) {
		return model.SigningCallback{}, apperrors.ErrInvalidSignature
	}

	var cb model.SigningCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return model.SigningCallback{}, fmt.Errorf("failed to parse callback payload: %w", err)
	}
	if cb.RequestID == "" {
		return model.SigningCallback{}, fmt.Errorf("callback payload has no request ID")
	}
	return cb, nil
}

// Sign returns the raw HMAC-SHA256 of payload under secret.
func Sign(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

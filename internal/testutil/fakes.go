package testutil

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/esign"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// FakeBankClient is a bank.Client that answers from canned per-investor
// results instead of calling the bank. Investors without a canned result
// succeed with UTR "UTR-<investorID>".
type FakeBankClient struct {
	mu sync.Mutex

	// Results overrides the result for an investor.
	Results map[string]model.PayoutResult

	// Err makes SubmitBatch reject the whole batch.
	Err error

	// Batches records every submitted batch.
	Batches [][]model.PayoutInstruction
}

// NewFakeBankClient creates a bank fake where every payout succeeds.
func NewFakeBankClient() *FakeBankClient {
	return &FakeBankClient{Results: make(map[string]model.PayoutResult)}
}

// WithFailure makes the investor's payout fail with reason.
func (f *FakeBankClient) WithFailure(investorID, reason string) *FakeBankClient {
	f.Results[investorID] = model.PayoutResult{InvestorID: investorID, Status: model.PayoutFailed, FailureReason: reason}
	return f
}

// WithSuccess makes the investor's payout succeed with utr.
func (f *FakeBankClient) WithSuccess(investorID, utr string) *FakeBankClient {
	f.Results[investorID] = model.PayoutResult{InvestorID: investorID, Status: model.PayoutSuccess, UTR: utr, TransactionID: "TXN-" + utr}
	return f
}

// WithPending makes the bank leave the investor's payout unresolved.
func (f *FakeBankClient) WithPending(investorID string) *FakeBankClient {
	f.Results[investorID] = model.PayoutResult{InvestorID: investorID, Status: model.PayoutPending}
	return f
}

// WithError makes every batch fail as a whole.
func (f *FakeBankClient) WithError(err error) *FakeBankClient {
	f.Err = err
	return f
}

// SubmitBatch implements bank.Client.
func (f *FakeBankClient) SubmitBatch(_ context.Context, _ string, instructions []model.PayoutInstruction) (model.BatchSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Batches = append(f.Batches, append([]model.PayoutInstruction(nil), instructions...))
	if f.Err != nil {
		return model.BatchSubmission{}, f.Err
	}

	sub := model.BatchSubmission{BatchID: fmt.Sprintf("BATCH-%d", len(f.Batches))}
	for _, in := range instructions {
		res, ok := f.Results[in.InvestorID]
		if !ok {
			res = model.PayoutResult{
				InvestorID:    in.InvestorID,
				Status:        model.PayoutSuccess,
				UTR:           "UTR-" + in.InvestorID,
				TransactionID: "TXN-" + in.InvestorID,
			}
		}
		res.ProcessedAt = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
		sub.Results = append(sub.Results, res)
	}
	return sub, nil
}

// SubmittedInvestors returns the investor IDs of batch n (0-based).
func (f *FakeBankClient) SubmittedInvestors(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n >= len(f.Batches) {
		return nil
	}
	ids := make([]string, 0, len(f.Batches[n]))
	for _, in := range f.Batches[n] {
		ids = append(ids, in.InvestorID)
	}
	return ids
}

// BatchCount returns how many batches were submitted.
func (f *FakeBankClient) BatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Batches)
}

// FakeESignClient is an esign.Client that issues sequential request IDs.
// Callbacks are verified with the real HMAC check against Secret.
type FakeESignClient struct {
	mu       sync.Mutex
	Secret   []byte
	FailFor  map[string]error // keyed by investorId metadata
	Requests []FakeSigningCall
	seq      int
}

// FakeSigningCall records one InitiateSigning call.
type FakeSigningCall struct {
	DocumentURL string
	Signer      model.SignerDetails
	Metadata    map[string]string
}

// NewFakeESignClient creates an e-sign fake with a fixed webhook secret.
func NewFakeESignClient() *FakeESignClient {
	return &FakeESignClient{
		Secret:  []byte("test-webhook-secret"),
		FailFor: make(map[string]error),
	}
}

// InitiateSigning implements esign.Client.
func (f *FakeESignClient) InitiateSigning(_ context.Context, documentURL string, signer model.SignerDetails, metadata map[string]string) (model.SigningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, FakeSigningCall{DocumentURL: documentURL, Signer: signer, Metadata: metadata})
	if err, ok := f.FailFor[metadata["investorId"]]; ok {
		return model.SigningSession{}, err
	}
	f.seq++
	id := fmt.Sprintf("REQ-%03d", f.seq)
	return model.SigningSession{
		RequestID:  id,
		SigningURL: "https://esign.test/sign/" + id,
		ExpiresAt:  time.Now().UTC().Add(7 * 24 * time.Hour),
	}, nil
}

// VerifyCallback implements esign.Client.
func (f *FakeESignClient) VerifyCallback(payload []byte, signature string) (model.SigningCallback, error) {
	return esign.VerifyCallback(f.Secret, payload, signature)
}

// CallCount returns how many signing sessions were requested.
func (f *FakeESignClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// SignedCallback builds a callback body and its valid signature.
func (f *FakeESignClient) SignedCallback(requestID string, status model.SigningStatus) ([]byte, string) {
	body, _ := json.Marshal(map[string]any{"requestId": requestID, "status": status})
	return body, hex.EncodeToString(esign.Sign(f.Secret, body))
}

// RecordingNotifier is a notify.Notifier that keeps every notification.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []model.Notification
	Err  error
}

// Notify implements notify.Notifier.
func (r *RecordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, n)
	return nil
}

// OfType returns the recorded notifications of type t.
func (r *RecordingNotifier) OfType(t model.NotificationType) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Notification
	for _, n := range r.Sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
